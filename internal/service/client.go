// Package service is the HTTP boundary to the todo backend.
package service

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

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Makepad-fr/tada/internal/model"
)

const (
	DefaultListPath = "/getTodods"

	addPath      = "/addTodos"
	completePath = "/completeTodos/"
	deletePath   = "/deleteTodos/"

	genericListError = "error fetching tasks"
)

// Options configures a Client. Zero values are usable except BaseURL.
type Options struct {
	BaseURL  string
	ListPath string
	Timeout  time.Duration // 0: no client timeout
	// RequestsPerSecond paces outgoing requests; 0 disables pacing.
	RequestsPerSecond float64
	// Token returns the bearer token for each request; "" sends none.
	Token      func() string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the todo backend.
type Client struct {
	baseURL  string
	listPath string
	http     *http.Client
	limiter  *rate.Limiter
	token    func() string
	log      *zap.Logger
}

func New(opt Options) *Client {
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opt.Timeout}
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if opt.RequestsPerSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(opt.RequestsPerSecond), 1)
	}
	listPath := opt.ListPath
	if listPath == "" {
		listPath = DefaultListPath
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	token := opt.Token
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		baseURL:  strings.TrimRight(opt.BaseURL, "/"),
		listPath: listPath,
		http:     hc,
		limiter:  lim,
		token:    token,
		log:      log,
	}
}

// List fetches the whole task collection in backend order.
// A null body is an empty collection.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if err := c.do(ctx, http.MethodGet, c.listPath, nil, &tasks, genericListError); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Create adds a task with the given body and returns what the backend stored.
func (c *Client) Create(ctx context.Context, body string) (model.Task, error) {
	var created model.Task
	in := struct {
		Body string `json:"body"`
	}{Body: body}
	if err := c.do(ctx, http.MethodPost, addPath, in, &created, "error adding task"); err != nil {
		return model.Task{}, err
	}
	return created, nil
}

// Complete marks the task as completed.
func (c *Client) Complete(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodPut, completePath+url.PathEscape(id.String()), nil, nil, "error completing task")
}

// Delete removes the task.
func (c *Client) Delete(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, deletePath+url.PathEscape(id.String()), nil, nil, "error deleting task")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, fallback string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, reqID, raw, fallback)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Status: resp.StatusCode, RequestID: reqID, Err: err}
	}
	return nil
}
