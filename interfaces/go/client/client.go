// Package client is a small Go client for the interview-monitor operator console.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client { return &Client{BaseURL: baseURL, HTTP: http.DefaultClient} }

// APIError is the console's error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("console: %d %s: %s", e.Status, e.Code, e.Message)
}

type Session struct {
	ID                string `json:"id"`
	State             string `json:"state"`
	TargetID          string `json:"targetId"`
	Selecting         bool   `json:"selecting"`
	Trying            bool   `json:"trying"`
	ReconnectAttempts uint   `json:"reconnectAttempts"`
	FrameErrorCount   uint   `json:"frameErrorCount"`
}

type Source struct {
	ID        string `json:"id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Candidate bool   `json:"candidate"`
	Selected  bool   `json:"selected"`
}

type Alert struct {
	ID          string `json:"id"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Kind        string `json:"kind"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error APIError `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		e.Error.Status = resp.StatusCode
		return &e.Error
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) Session(ctx context.Context) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodGet, "/api/session", nil, &s)
	return s, err
}

func (c *Client) Sources(ctx context.Context) ([]Source, error) {
	var out struct {
		Items []Source `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sources", nil, &out)
	return out.Items, err
}

// Select targets the source with the given id; an empty id picks the largest candidate.
func (c *Client) Select(ctx context.Context, sourceID string) (Session, error) {
	in := map[string]any{"sourceId": sourceID}
	if sourceID == "" {
		in = map[string]any{"auto": true}
	}
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/session/target", in, &s)
	return s, err
}

func (c *Client) Start(ctx context.Context) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/session/start", nil, &s)
	return s, err
}

func (c *Client) Stop(ctx context.Context) (Session, error) {
	var s Session
	err := c.do(ctx, http.MethodPost, "/api/session/stop", nil, &s)
	return s, err
}

func (c *Client) Alerts(ctx context.Context) ([]Alert, error) {
	var out struct {
		Items []Alert `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "/api/alerts", nil, &out)
	return out.Items, err
}

func (c *Client) Acknowledge(ctx context.Context, alertID string) error {
	return c.do(ctx, http.MethodPost, "/api/alerts/"+url.PathEscape(alertID)+"/ack", nil, nil)
}

func (c *Client) ClearAlerts(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/alerts", nil, nil)
}

func (c *Client) RequestScan(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/scan-requests", nil, nil)
}

func (c *Client) ReportAlert(ctx context.Context, title, description string) error {
	return c.do(ctx, http.MethodPost, "/api/client-alerts", map[string]string{"alert": title, "description": description}, nil)
}

func (c *Client) Settings(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out)
	return out, err
}

func (c *Client) UpdateSettings(ctx context.Context, values map[string]string) (map[string]string, error) {
	var out map[string]string
	err := c.do(ctx, http.MethodPost, "/api/settings", values, &out)
	return out, err
}
