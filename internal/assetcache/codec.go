package assetcache

import "encoding/json"

// Cached assets are stored as a small JSON envelope so the content type
// travels with the body.
func encodeAsset(a *Asset) ([]byte, error) {
	return json.Marshal(a)
}

func decodeAsset(raw []byte) (*Asset, error) {
	var a Asset
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, errBadEnvelope
	}
	return &a, nil
}
