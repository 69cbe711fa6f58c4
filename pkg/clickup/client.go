// Package clickup is a small client for the parts of the ClickUp v2 API the
// maintenance tooling reads and writes.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"
)

const DefaultBaseURL = "https://api.clickup.com/api/v2"

// APIError is a non-2xx answer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clickup: HTTP %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.httpClient = &http.Client{Timeout: d} }
}

func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Errorf("encoding request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return errors.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.token)

	log.Debugf("clickup %s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// User returns the token's owner; used as a connection check.
func (c *Client) User(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/user", nil, nil, &resp)
	return resp.User, err
}

func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var resp struct {
		Teams []Team `json:"teams"`
	}
	err := c.do(ctx, http.MethodGet, "/team", nil, nil, &resp)
	return resp.Teams, err
}

// SharedFolders lists the folders shared with the token's user in a team.
func (c *Client) SharedFolders(ctx context.Context, teamID string) ([]Folder, error) {
	var resp struct {
		Shared struct {
			Folders []Folder `json:"folders"`
		} `json:"shared"`
	}
	err := c.do(ctx, http.MethodGet, "/team/"+url.PathEscape(teamID)+"/shared", nil, nil, &resp)
	return resp.Shared.Folders, err
}

func (c *Client) SpaceFolders(ctx context.Context, spaceID string) ([]Folder, error) {
	var resp struct {
		Folders []Folder `json:"folders"`
	}
	err := c.do(ctx, http.MethodGet, "/space/"+url.PathEscape(spaceID)+"/folder", nil, nil, &resp)
	return resp.Folders, err
}

func (c *Client) Lists(ctx context.Context, folderID string) ([]List, error) {
	var resp struct {
		Lists []List `json:"lists"`
	}
	err := c.do(ctx, http.MethodGet, "/folder/"+url.PathEscape(folderID)+"/list", nil, nil, &resp)
	return resp.Lists, err
}

// TaskPageSize is the most tasks ClickUp returns per page.
const TaskPageSize = 100

type TaskQuery struct {
	Assignees     []string `url:"assignees[],omitempty"`
	Statuses      []string `url:"statuses[],omitempty"`
	IncludeClosed bool     `url:"include_closed,omitempty"`
	// First page to read; Tasks follows the pages from here to the last.
	Page int `url:"page,omitempty"`
}

func (c *Client) Tasks(ctx context.Context, listID string, q TaskQuery) ([]Task, error) {
	var tasks []Task
	for {
		params, err := query.Values(q)
		if err != nil {
			return nil, errors.Errorf("encoding task query: %w", err)
		}
		var resp struct {
			Tasks    []Task `json:"tasks"`
			LastPage *bool  `json:"last_page"`
		}
		if err := c.do(ctx, http.MethodGet, "/list/"+url.PathEscape(listID)+"/task", params, nil, &resp); err != nil {
			return nil, err
		}
		tasks = append(tasks, resp.Tasks...)

		last := len(resp.Tasks) < TaskPageSize
		if resp.LastPage != nil {
			last = *resp.LastPage || len(resp.Tasks) == 0
		}
		if last {
			return tasks, nil
		}
		q.Page++
		log.Debugf("list %s: reading task page %d", listID, q.Page)
	}
}

func (c *Client) Task(ctx context.Context, taskID string) (Task, error) {
	var t Task
	err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(taskID), nil, nil, &t)
	return t, err
}

func (c *Client) SetCustomField(ctx context.Context, taskID, fieldID string, value interface{}) error {
	path := "/task/" + url.PathEscape(taskID) + "/field/" + url.PathEscape(fieldID)
	return c.do(ctx, http.MethodPost, path, nil, map[string]interface{}{"value": value}, nil)
}

func (c *Client) SetStatus(ctx context.Context, taskID, status string) error {
	return c.do(ctx, http.MethodPut, "/task/"+url.PathEscape(taskID), nil, map[string]string{"status": status}, nil)
}
