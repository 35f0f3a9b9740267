package deploy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const acceptGitHubV3 = "application/vnd.github.v3+json"

// Client is a minimal GitHub REST client covering what publishing needs:
// creating the repository, configuring Pages, and reading build status.
type Client struct {
	// BaseURL defaults to the public API; tests point it at a local server.
	BaseURL    string
	HTTPClient *http.Client

	owner string
	token string
	log   *slog.Logger
}

func NewClient(owner, token string, log *slog.Logger) *Client {
	return &Client{
		BaseURL:    "https://api.github.com",
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		owner:      owner,
		token:      token,
		log:        log,
	}
}

func (c *Client) request(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		payload = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", acceptGitHubV3)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// CreateRepo creates a public repository under the authenticated user. A 422
// means it already exists, which is just as good for publishing.
func (c *Client) CreateRepo(ctx context.Context, name, description string) error {
	body := map[string]any{
		"name":        name,
		"description": description,
		"private":     false,
		"auto_init":   false,
	}
	status, data, err := c.request(ctx, http.MethodPost, "/user/repos", body)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated, http.StatusUnprocessableEntity:
		return nil
	}
	return fmt.Errorf("create repo: status %d: %s", status, data)
}

// EnablePages turns on branch-built Pages serving main from the root, for
// the basic stack. A 409 means Pages is already configured.
func (c *Client) EnablePages(ctx context.Context, repo string) error {
	body := map[string]any{
		"source": map[string]any{"branch": "main", "path": "/"},
	}
	status, data, err := c.request(ctx, http.MethodPost, "/repos/"+c.owner+"/"+repo+"/pages", body)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusCreated, http.StatusConflict:
		return nil
	}
	return fmt.Errorf("enable pages: status %d: %s", status, data)
}

// EnablePagesActions sets the Pages build type to the Actions workflow, for
// the react stack. When the site already exists the create conflicts and the
// configuration is updated in place instead.
func (c *Client) EnablePagesActions(ctx context.Context, repo string) error {
	body := map[string]any{"build_type": "workflow"}
	path := "/repos/" + c.owner + "/" + repo + "/pages"
	status, data, err := c.request(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if status == http.StatusCreated {
		return nil
	}
	if status == http.StatusConflict {
		status, data, err = c.request(ctx, http.MethodPut, path, body)
		if err != nil {
			return err
		}
		if status == http.StatusNoContent || status == http.StatusOK {
			return nil
		}
	}
	return fmt.Errorf("enable pages workflow build: status %d: %s", status, data)
}

// PagesBuildStatus reads the latest Pages build state: "building", "built",
// "errored", or "" while no build exists yet.
func (c *Client) PagesBuildStatus(ctx context.Context, repo string) (string, error) {
	status, data, err := c.request(ctx, http.MethodGet, "/repos/"+c.owner+"/"+repo+"/pages/builds/latest", nil)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
		var build struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(data, &build); err != nil {
			return "", fmt.Errorf("decode pages build: %w", err)
		}
		return build.Status, nil
	case http.StatusNotFound:
		return "", nil
	}
	return "", fmt.Errorf("pages build status: status %d: %s", status, data)
}
