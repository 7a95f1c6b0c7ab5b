// Package device derives device fingerprints and labels from client signals.
// Enrollment and trust decisions live in the service subpackage.
package device

import (
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"

	strutil "clockgate/pkg/platform/strings"
)

// ComputeFingerprint hashes the user agent and any extra client signals
// (screen size, timezone, language) into a 64-char hex blake2b-256 digest.
// Only the browser's major version contributes, so routine browser updates
// keep the fingerprint stable.
func ComputeFingerprint(userAgent string, signals ...string) string {
	parts := []string{normalizeUserAgent(userAgent)}
	for _, s := range strutil.DedupeAndTrim(signals) {
		parts = append(parts, strings.ToLower(s))
	}
	sum := blake2b.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func normalizeUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	return strings.Join([]string{
		name,
		majorVersion(version),
		ua.OSInfo().Name,
		ua.Platform(),
		boolLabel(ua.Mobile()),
	}, "/")
}

// DescribeUserAgent returns OS and browser labels for a device record.
func DescribeUserAgent(userAgent string) (os string, browser string) {
	if strings.TrimSpace(userAgent) == "" {
		return "", ""
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	if name != "" {
		browser = strings.TrimSpace(name + " " + majorVersion(version))
	}
	os = ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	return os, browser
}

// ParseUserAgent renders a display name such as "Chrome 120 on Mac OS X".
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown Device"
	}
	os, browser := DescribeUserAgent(userAgent)
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

func majorVersion(version string) string {
	major, _, _ := strings.Cut(version, ".")
	return major
}

func boolLabel(b bool) string {
	if b {
		return "mobile"
	}
	return "desktop"
}
