// Package client talks to the kbqa HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"kbqa/internal/model"
)

const DefaultTimeout = 120 * time.Second

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// NoticeError is a 200 response that carries an "error" field, such as the
// empty knowledge base notice.
type NoticeError struct {
	Message string
}

func (e *NoticeError) Error() string { return e.Message }

type UploadResult struct {
	Message string `json:"message"`
	Chunks  int    `json:"chunks"`
}

type Answer struct {
	Query       string `json:"query"`
	Answer      string `json:"answer"`
	SourceCount int    `json:"source_count"`
	SessionID   string `json:"session_id"`
}

type History struct {
	SessionID string       `json:"session_id"`
	Turns     []model.Turn `json:"turns"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Upload sends the file at path as the multipart field "file".
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read %s failed: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResult
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ask(ctx context.Context, query, sessionID string) (*Answer, error) {
	form := url.Values{}
	form.Set("query", query)
	form.Set("session_id", sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/qa", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out Answer
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Files(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		Files []string `json:"files"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Files, nil
}

func (c *Client) History(ctx context.Context, sessionID string) (*History, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions/"+url.PathEscape(sessionID)+"/history", nil)
	if err != nil {
		return nil, err
	}
	var out History
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response failed: %w", err)
	}

	var notice struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(raw, &notice)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := notice.Error
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if notice.Error != "" {
		return &NoticeError{Message: notice.Error}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response failed: %w", err)
	}
	return nil
}

// IsNotice reports whether err is a 200-status notice from the server.
func IsNotice(err error) bool {
	var n *NoticeError
	return errors.As(err, &n)
}
