//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tidwall/gjson"

	jwttoken "github.com/TylerGelinas/socure/internal/jwt_token"
	"github.com/TylerGelinas/socure/internal/platform/config"
)

// devSigningKey matches config.example.yaml.
const devSigningKey = "dev-secret-key-change-in-production"

// TestContext holds state between test steps.
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	Tokens           *jwttoken.JWTService
	AccessToken      string
	LastResponse     *http.Response
	LastResponseBody []byte
}

// NewTestContext reads BASE_URL and the SOCURE_JWT_* variables the gateway
// was started with, falling back to local defaults.
func NewTestContext() *TestContext {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	defaults := config.Default().Server
	key := envOr(config.EnvPrefix+"JWT_SIGNING_KEY", devSigningKey)
	issuer := envOr(config.EnvPrefix+"JWT_ISSUER", defaults.JWTIssuer)
	audience := envOr(config.EnvPrefix+"JWT_AUDIENCE", defaults.JWTAudience)

	return &TestContext{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Tokens:     jwttoken.NewJWTService(key, issuer, audience, 5*time.Minute),
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// POST sends body as JSON. A nil body sends no payload and no content type.
func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return tc.do(req)
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return tc.do(req)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// ResponseField looks up a dotted path (e.g. "state.journey") in the last
// JSON response.
func (tc *TestContext) ResponseField(path string) (gjson.Result, error) {
	if !gjson.ValidBytes(tc.LastResponseBody) {
		return gjson.Result{}, fmt.Errorf("response is not JSON: %s", tc.LastResponseBody)
	}
	res := gjson.GetBytes(tc.LastResponseBody, path)
	if !res.Exists() {
		return gjson.Result{}, fmt.Errorf("field %s not found in response %s", path, tc.LastResponseBody)
	}
	return res, nil
}

func (tc *TestContext) LastStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}
