package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/crucial707/auditlog-admin/internal/middleware"
)

// apiClient calls the admin API on behalf of the signed-in browser.
type apiClient struct {
	base string
	http *http.Client
}

// apiStatusError is a non-2xx API response.
type apiStatusError struct {
	Status  int
	Message string
}

func (e *apiStatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Message)
}

// get performs GET to the API with token and decodes the JSON response into out.
// The browser request's correlation id is forwarded so API log lines can be joined with the UI's.
func (c *apiClient) get(r *http.Request, path, token string, out interface{}) error {
	return c.do(r, http.MethodGet, path, token, nil, out)
}

func (c *apiClient) do(r *http.Request, method, path, token string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequestWithContext(r.Context(), method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if cid := middleware.GetCorrelationID(r.Context()); cid != "" {
		req.Header.Set(middleware.CorrelationIDHeader, cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &errResp)
		msg := errResp.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &apiStatusError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
