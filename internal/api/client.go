// Package api talks to the table-extraction service over HTTP. The service
// is an opaque collaborator: it receives image uploads, recognises tabular
// structure, and produces downloadable spreadsheets.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nconklindev/tablegrab/internal/types"
)

// DefaultBaseURL is where the extraction service listens when run locally.
const DefaultBaseURL = "http://localhost:8000"

// Client issues requests against one extraction service instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Client for the service at baseURL. A nil logger discards
// request logs.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// BaseURL returns the configured service address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Health probes GET /health. Any transport error or non-2xx status is
// returned as an error; callers treat it as a warning, not a hard failure.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	c.logRequest(req, resp, start)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check: server returned %s", resp.Status)
	}
	return nil
}

// Upload submits one file's bytes as a multipart form (field "file") to
// POST /upload and returns the server-assigned identifier and canonical
// filename.
func (c *Client) Upload(ctx context.Context, filename string, data []byte) (types.UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return types.UploadResult{}, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return types.UploadResult{}, fmt.Errorf("building upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return types.UploadResult{}, fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return types.UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.UploadResult{}, fmt.Errorf("uploading %s: %w", filename, err)
	}
	defer resp.Body.Close()
	c.logRequest(req, resp, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.UploadResult{}, fmt.Errorf("upload of %s failed: %s", filename, resp.Status)
	}

	var ur types.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return types.UploadResult{}, fmt.Errorf("decoding upload response: %w", err)
	}
	return ur, nil
}

// Process asks the service to extract a table from a previously uploaded
// file, identified by its upload token and canonical filename.
func (c *Client) Process(ctx context.Context, fileID, filename string) (*types.ProcessResult, error) {
	q := url.Values{}
	q.Set("file_id", fileID)
	q.Set("filename", filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", filename, err)
	}
	defer resp.Body.Close()
	c.logRequest(req, resp, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("processing of %s failed: %s", filename, resp.Status)
	}

	var pr types.ProcessResult
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decoding process response: %w", err)
	}
	return &pr, nil
}

// ResolveURL turns a server-relative artifact path (e.g. /outputs/x.xlsx)
// into an absolute URL against the service base address. Absolute inputs
// pass through unchanged.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, "://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref
}

// FetchArtifact downloads the spreadsheet artifact at the given
// server-relative (or absolute) URL and returns its bytes.
func (c *Client) FetchArtifact(ctx context.Context, ref string) ([]byte, error) {
	target := c.ResolveURL(ref)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading artifact: %w", err)
	}
	defer resp.Body.Close()
	c.logRequest(req, resp, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("artifact download failed: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading artifact body: %w", err)
	}
	return data, nil
}

func (c *Client) logRequest(req *http.Request, resp *http.Response, start time.Time) {
	c.logger.Info("http request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
