// Package client is the HTTP client for the ring API. All CLI commands that
// talk to a server go through it.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kemeter/ring/internal/types"
)

// APIError is a non-2xx response decoded into its error body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// NodeInfo mirrors the /node/get response.
type NodeInfo struct {
	Name              string `json:"name"`
	OperatingSystem   string `json:"operating_system"`
	OSType            string `json:"os_type"`
	Architecture      string `json:"architecture"`
	CPUs              int    `json:"cpus"`
	MemoryBytes       int64  `json:"memory_bytes"`
	ServerVersion     string `json:"server_version"`
	Containers        int    `json:"containers"`
	ContainersRunning int    `json:"containers_running"`
	Images            int    `json:"images"`
}

// Client talks to one ring server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the server at baseURL. The token may be empty for
// login-only use.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends one JSON request. A non-2xx response is returned as *APIError;
// the response body, when present and wanted, is decoded into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Token, nil
}

// CreateDeployment submits a deployment. With force, an unchanged spec is
// re-applied instead of rejected.
func (c *Client) CreateDeployment(ctx context.Context, d types.Deployment, force bool) (*types.Deployment, error) {
	path := "/deployments"
	if force {
		path += "?force=true"
	}
	var created types.Deployment
	if err := c.do(ctx, http.MethodPost, path, d, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListDeployments lists deployments, optionally filtered by namespace and
// status.
func (c *Client) ListDeployments(ctx context.Context, namespace, status string) ([]types.Deployment, error) {
	q := url.Values{}
	if namespace != "" {
		q.Set("namespace", namespace)
	}
	if status != "" {
		q.Set("status", status)
	}
	path := "/deployments"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []types.Deployment
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDeployment fetches one deployment with its live instance list.
func (c *Client) GetDeployment(ctx context.Context, id string) (*types.Deployment, error) {
	var d types.Deployment
	if err := c.do(ctx, http.MethodGet, "/deployments/"+url.PathEscape(id), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDeployment marks a deployment for deletion.
func (c *Client) DeleteDeployment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/deployments/"+url.PathEscape(id), nil, nil)
}

// DeploymentLogs returns log lines per container id.
func (c *Client) DeploymentLogs(ctx context.Context, id, tail string) (map[string][]string, error) {
	path := "/deployments/" + url.PathEscape(id) + "/logs"
	if tail != "" {
		path += "?tail=" + url.QueryEscape(tail)
	}
	out := map[string][]string{}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeploymentEvents returns a deployment's event log, newest first.
func (c *Client) DeploymentEvents(ctx context.Context, id, level string, limit int) ([]types.DeploymentEvent, error) {
	q := url.Values{}
	if level != "" {
		q.Set("level", level)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/deployments/" + url.PathEscape(id) + "/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []types.DeploymentEvent
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StreamEvents subscribes to the server's live event stream. Events arrive
// on the returned channel until ctx is cancelled or the server closes the
// connection; the channel is closed either way.
func (c *Client) StreamEvents(ctx context.Context) (<-chan types.DeploymentEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/stream", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// The shared client's request timeout would cut a long-lived stream off.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&e); decodeErr == nil {
			apiErr.Message = e.Error
		}
		resp.Body.Close()
		return nil, apiErr
	}

	ch := make(chan types.DeploymentEvent)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		eventType := ""
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				eventType = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				if eventType != "deployment_event" {
					continue
				}
				var evt types.DeploymentEvent
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
					continue
				}
				select {
				case ch <- evt:
				case <-ctx.Done():
					return
				}
			case line == "":
				eventType = ""
			}
		}
	}()
	return ch, nil
}

// RollbackDeployment rolls a deployment back to its newest Deleted
// predecessor and returns the promoted deployment id.
func (c *Client) RollbackDeployment(ctx context.Context, id string) (string, error) {
	var resp struct {
		PreviousDeploymentID string `json:"previous_deployment_id"`
	}
	err := c.do(ctx, http.MethodPost, "/deployments/"+url.PathEscape(id)+"/rollback", nil, &resp)
	if err != nil {
		return "", err
	}
	return resp.PreviousDeploymentID, nil
}

// DeploymentHealthChecks lists health check results; with latest, the most
// recent result per check type.
func (c *Client) DeploymentHealthChecks(ctx context.Context, id string, latest bool) ([]types.HealthCheckResult, error) {
	path := "/deployments/" + url.PathEscape(id) + "/health_checks"
	if latest {
		path += "?latest=true"
	}
	var out []types.HealthCheckResult
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConfig creates a config object.
func (c *Client) CreateConfig(ctx context.Context, cfg types.Config) (*types.Config, error) {
	var created types.Config
	if err := c.do(ctx, http.MethodPost, "/configs", cfg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListConfigs lists configs, optionally filtered by namespace.
func (c *Client) ListConfigs(ctx context.Context, namespace string) ([]types.Config, error) {
	path := "/configs"
	if namespace != "" {
		path += "?namespace=" + url.QueryEscape(namespace)
	}
	var out []types.Config
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetConfig fetches one config by id.
func (c *Client) GetConfig(ctx context.Context, id string) (*types.Config, error) {
	var cfg types.Config
	if err := c.do(ctx, http.MethodGet, "/configs/"+url.PathEscape(id), nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateConfig replaces a config's name, data and labels.
func (c *Client) UpdateConfig(ctx context.Context, id string, cfg types.Config) (*types.Config, error) {
	var updated types.Config
	if err := c.do(ctx, http.MethodPut, "/configs/"+url.PathEscape(id), cfg, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteConfig deletes a config.
func (c *Client) DeleteConfig(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/configs/"+url.PathEscape(id), nil, nil)
}

// CreateUser creates an API account.
func (c *Client) CreateUser(ctx context.Context, username, password string) (*types.UserView, error) {
	var view types.UserView
	err := c.do(ctx, http.MethodPost, "/users", map[string]string{
		"username": username,
		"password": password,
	}, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListUsers lists all accounts.
func (c *Client) ListUsers(ctx context.Context) ([]types.UserView, error) {
	var out []types.UserView
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Me returns the account owning the client's token.
func (c *Client) Me(ctx context.Context) (*types.UserView, error) {
	var view types.UserView
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateUser updates an account's username and/or password; empty strings
// leave the stored value untouched.
func (c *Client) UpdateUser(ctx context.Context, id, username, password string) (*types.UserView, error) {
	body := map[string]string{}
	if username != "" {
		body["username"] = username
	}
	if password != "" {
		body["password"] = password
	}
	var view types.UserView
	if err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), body, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

// NodeGet returns the server's host snapshot.
func (c *Client) NodeGet(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := c.do(ctx, http.MethodGet, "/node/get", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Healthz pings the server.
func (c *Client) Healthz(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}
