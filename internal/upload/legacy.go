package upload

import (
	"context"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
)

// Resolve accepts the legacy image reference format: an http(s) URL is used
// as-is, a base64 data URI is decoded and stored through the intake.
func (in *Intake) Resolve(ctx context.Context, ref, baseURL string) (*Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, apperr.Validation("No image provided", "image is required")
	}

	if strings.HasPrefix(ref, "data:") {
		data, err := decodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return in.StoreBytes(ctx, data, baseURL)
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Validation("Invalid image",
			"Image must be an http(s) URL or a base64 data URI")
	}
	return &Image{URL: ref}, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, apperr.Validation("Invalid image", "Data URI must be base64 encoded")
	}
	if mediaType := strings.TrimSuffix(header, ";base64"); !allowedMIMETypes[strings.ToLower(mediaType)] {
		return nil, invalidType()
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperr.Validation("Invalid image", "Data URI payload is not valid base64")
	}
	return data, nil
}
