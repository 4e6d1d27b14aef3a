package render

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// decodeDataURL splits a base64 data URL produced by FileReader.readAsDataURL.
func decodeDataURL(raw string) (Asset, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return Asset{}, fmt.Errorf("not a data URL")
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Asset{}, fmt.Errorf("data URL has no payload separator")
	}

	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return Asset{}, fmt.Errorf("data URL is not base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Asset{}, fmt.Errorf("decode data URL payload: %w", err)
	}

	return Asset{Data: data, ContentType: contentType}, nil
}
