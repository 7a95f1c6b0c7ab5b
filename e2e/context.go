// Package e2e drives a running clockgate server through its public API.
// Set CLOCKGATE_E2E_URL and CLOCKGATE_E2E_SIGNING_KEY to the server's
// address and auth.jwt_signing_key.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TestContext carries HTTP state across the steps of one scenario.
type TestContext struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	HTTPClient *http.Client

	adminToken  string
	token       string
	identityID  string
	fingerprint string

	lastStatus int
	lastBody   []byte
}

func NewTestContext(baseURL, signingKey, issuer string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SigningKey: signingKey,
		Issuer:     issuer,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Reset clears per-scenario state.
func (tc *TestContext) Reset() {
	tc.adminToken = ""
	tc.token = ""
	tc.identityID = ""
	tc.fingerprint = ""
	tc.lastStatus = 0
	tc.lastBody = nil
}

// MintToken signs an access token the way the server's token command does.
func (tc *TestContext) MintToken(identityID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"identity_id": identityID,
		"sub":         identityID,
		"iss":         tc.Issuer,
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"jti":         uuid.NewString(),
	}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.SigningKey))
}

func (tc *TestContext) AdminToken() (string, error) {
	if tc.adminToken == "" {
		signed, err := tc.MintToken(uuid.NewString(), "admin")
		if err != nil {
			return "", err
		}
		tc.adminToken = signed
	}
	return tc.adminToken, nil
}

func (tc *TestContext) SetIdentity(identityID, token string) {
	tc.identityID = identityID
	tc.token = token
}

func (tc *TestContext) IdentityID() string       { return tc.identityID }
func (tc *TestContext) Token() string            { return tc.token }
func (tc *TestContext) Fingerprint() string      { return tc.fingerprint }
func (tc *TestContext) SetFingerprint(fp string) { tc.fingerprint = fp }

// Do sends body as JSON with the given bearer token and device fingerprint
// and records the response for later assertions.
func (tc *TestContext) Do(method, path, token, fingerprint string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if fingerprint != "" {
		req.Header.Set("X-Device-Fingerprint", fingerprint)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

// POST sends as the current identity from the current device.
func (tc *TestContext) POST(path string, body any) error {
	return tc.Do(http.MethodPost, path, tc.token, tc.fingerprint, body)
}

func (tc *TestContext) GET(path string) error {
	return tc.Do(http.MethodGet, path, tc.token, tc.fingerprint, nil)
}

func (tc *TestContext) GetLastResponseStatus() int  { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

// GetResponseField reads a dotted path such as "session.phase" from the last body.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.lastBody, &data); err != nil {
		return nil, fmt.Errorf("decode response: %w (body %s)", err, tc.lastBody)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		data, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found in response %s", field, tc.lastBody)
		}
	}
	return data, nil
}
