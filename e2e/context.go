package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TestContext is the per-scenario state shared by every step package: one
// HTTP client against a running server plus the ids created along the way.
type TestContext struct {
	BaseURL    string
	AdminToken string

	client     *http.Client
	lastStatus int
	lastBody   []byte
	saved      map[string]string
}

func NewTestContext(baseURL, adminToken string) *TestContext {
	return &TestContext{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		AdminToken: adminToken,
		client:     &http.Client{Timeout: 10 * time.Second},
		saved:      make(map[string]string),
	}
}

// Reset clears state between scenarios.
func (tc *TestContext) Reset() {
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.saved = make(map[string]string)
}

func (tc *TestContext) POST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, false)
}

func (tc *TestContext) AdminPOST(path string, body any) error {
	return tc.do(http.MethodPost, path, body, true)
}

func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, false)
}

func (tc *TestContext) do(method, path string, body any, admin bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if admin && tc.AdminToken != "" {
		req.Header.Set("X-Admin-Token", tc.AdminToken)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastStatus = resp.StatusCode
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

// GetResponseField reads a dotted path such as "record.status" from the last
// JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var cur any
	if err := json.Unmarshal(tc.lastBody, &cur); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(field, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		if cur, ok = obj[part]; !ok {
			return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
		}
	}
	return cur, nil
}

func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }
func (tc *TestContext) Saved(key string) string { return tc.saved[key] }
