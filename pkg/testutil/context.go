package testutil

import (
	"net/http"

	"clockgate/pkg/platform/middleware/device"
)

// WithBearer sets the Authorization header RequireAuth reads.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithFingerprint sets the header the device middleware copies into context.
func WithFingerprint(req *http.Request, fingerprint string) *http.Request {
	req.Header.Set(device.HeaderFingerprint, fingerprint)
	return req
}
