// Package backend talks to the remote README generation service: a one-shot
// multipart generation request and a server-sent progress stream.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sync"
	"time"

	"github.com/vrsandeep/readme-console/internal/archive"
	"github.com/vrsandeep/readme-console/internal/config"
	"github.com/vrsandeep/readme-console/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SessionField carries the per-submission correlation token on both channels.
const (
	SessionField  = "session_id"
	SessionHeader = "X-Session-ID"
)

// Client handles communication with the generation service.
type Client struct {
	mu           sync.RWMutex
	baseURL      string
	generatePath string
	progressPath string

	httpClient   *http.Client
	streamClient *http.Client
	tracer       trace.Tracer
}

// NewClient creates a client for the service configured in cfg.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:      cfg.Backend.BaseURL,
		generatePath: cfg.Backend.GeneratePath,
		progressPath: cfg.Backend.ProgressPath,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout()},
		// The stream lives as long as the cycle; its context ends it.
		streamClient: &http.Client{Timeout: 0},
		tracer:       otel.Tracer("backend-client"),
	}
}

// SetBaseURL points both endpoints at a new service address.
func (c *Client) SetBaseURL(baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = baseURL
}

// BaseURL returns the service address currently in use.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// GenerateURL is the full address of the generation endpoint.
func (c *Client) GenerateURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL + c.generatePath
}

// ProgressURL is the full address of the progress stream for one submission.
func (c *Client) ProgressURL(token string) string {
	c.mu.RLock()
	u := c.baseURL + c.progressPath
	c.mu.RUnlock()
	if token == "" {
		return u
	}
	return u + "?" + url.Values{SessionField: {token}}.Encode()
}

// Generate posts the submission as multipart form data and decodes the reply.
// The HTTP status is not interpreted: the body alone decides the outcome.
// Any error returned here is a transport failure.
func (c *Client) Generate(ctx context.Context, token string, in models.SubmissionInput) (*models.GenerateResponse, error) {
	ctx, span := c.tracer.Start(ctx, "backend.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("submission.token", token),
		attribute.Bool("submission.has_file", in.HasFile()),
		attribute.Bool("submission.has_repo_url", in.RepoURL != ""),
	)

	body, contentType, err := encodeSubmission(token, in)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.GenerateURL(), body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set(SessionHeader, token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, fmt.Errorf("failed to call generation service: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
	)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read response (status %d): %w", resp.StatusCode, err)
	}

	var out *models.GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable response")
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	// A JSON null leaves out nil.
	if out == nil {
		err := errors.New("response is not a JSON object")
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable response")
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	return out, nil
}

// encodeSubmission builds the multipart body. Fields are only written when
// present, matching a browser FormData that skips empty values.
func encodeSubmission(token string, in models.SubmissionInput) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if in.File != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName(in.File)))
		h.Set("Content-Type", archive.DetectContentType(in.File.Data))
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(in.File.Data); err != nil {
			return nil, "", err
		}
	}
	if in.RepoURL != "" {
		if err := mw.WriteField("repo_url", in.RepoURL); err != nil {
			return nil, "", err
		}
	}
	if token != "" {
		if err := mw.WriteField(SessionField, token); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func fileName(u *models.Upload) string {
	if u.Name == "" {
		return "blob"
	}
	return u.Name
}
