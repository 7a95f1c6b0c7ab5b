// Package device extracts the client-computed device fingerprint.
package device

import (
	"net/http"
	"strings"

	"clockgate/pkg/requestcontext"
)

const HeaderFingerprint = "X-Device-Fingerprint"

// maxFingerprintLen bounds the header; real fingerprints are hex digests.
const maxFingerprintLen = 128

// Fingerprint copies the X-Device-Fingerprint header into the request context.
// Requests without one proceed; services decide whether a fingerprint is needed.
func Fingerprint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp := strings.TrimSpace(r.Header.Get(HeaderFingerprint))
		if fp != "" && len(fp) <= maxFingerprintLen {
			r = r.WithContext(requestcontext.WithDeviceFingerprint(r.Context(), strings.ToLower(fp)))
		}
		next.ServeHTTP(w, r)
	})
}
