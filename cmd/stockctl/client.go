package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type stockClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient() *stockClient {
	return &stockClient{
		baseURL: serverURL,
		token:   resolvedToken(),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// do performs a request with an optional JSON body and decodes the JSON
// response into v when v is non-nil.
func (c *stockClient) do(method, path string, body any, v any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connecting to stocktrail server at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if v != nil {
		return json.NewDecoder(resp.Body).Decode(v)
	}
	return nil
}

func (c *stockClient) getJSON(path string, v any) error {
	return c.do(http.MethodGet, path, nil, v)
}

func (c *stockClient) postJSON(path string, body, v any) error {
	return c.do(http.MethodPost, path, body, v)
}

func (c *stockClient) patchJSON(path string, body, v any) error {
	return c.do(http.MethodPatch, path, body, v)
}

// apiError turns an error response into a readable message. The API answers
// with {"error": ...}, optionally carrying a separate human message.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Message)
		}
		if errResp.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
		}
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}
