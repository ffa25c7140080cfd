package extension

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"sf-clicktask-backend/internal/respond"
	"sf-clicktask-backend/internal/storage"
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.Code, e.Message)
}

// Client talks to the capture API. It keeps the login cookie in a jar so
// later calls are authenticated the way the browser would be.
type Client struct {
	http       *http.Client
	appVersion string
}

func NewClient(timeout time.Duration, appVersion string) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &Client{
		http:       &http.Client{Timeout: timeout, Jar: jar},
		appVersion: appVersion,
	}, nil
}

type CaptureRequest struct {
	ElementSelector string `json:"elementSelector"`
	ElementText     string `json:"elementText"`
	PageURL         string `json:"pageUrl"`
}

func (c *Client) Login(ctx context.Context, serverURL, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	return c.do(ctx, http.MethodPost, serverURL, "/api/auth/login", body, nil)
}

// AuthStatus reports whether the stored cookie is still accepted.
func (c *Client) AuthStatus(ctx context.Context, serverURL string) (bool, error) {
	err := c.do(ctx, http.MethodGet, serverURL, "/api/auth/status", nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return false, nil
	}
	return err == nil, err
}

func (c *Client) SendCapture(ctx context.Context, serverURL string, req CaptureRequest) (storage.ClickCapture, error) {
	var out storage.ClickCapture
	err := c.do(ctx, http.MethodPost, serverURL, "/api/captures", req, &out)
	return out, err
}

// Statistics doubles as the popup's connection test.
func (c *Client) Statistics(ctx context.Context, serverURL string) (storage.Statistics, error) {
	var out storage.Statistics
	err := c.do(ctx, http.MethodGet, serverURL, "/api/statistics", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, serverURL, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(serverURL, "/")+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Platform", "extension")
	if c.appVersion != "" {
		req.Header.Set("X-App-Version", c.appVersion)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb respond.ErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		if eb.Message == "" {
			eb.Message = http.StatusText(resp.StatusCode)
		}
		return &StatusError{Code: resp.StatusCode, Message: eb.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
