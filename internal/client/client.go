// Package client posts selected files to the upload endpoint.
package client

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"svsp-upload/internal/config"
	"svsp-upload/internal/protocol"
	"svsp-upload/internal/security"
	"svsp-upload/internal/upload"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server responded %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server responded %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

const maxErrorBody = 512

// Client implements upload.Poster over HTTP.
type Client struct {
	url    string
	http   *http.Client
	logger *log.Logger
}

var _ upload.Poster = (*Client)(nil)

// New builds a Client for cfg.UploadURL().
func New(cfg *config.Config, logger *log.Logger) (*Client, error) {
	tlsConfig, err := security.ClientTLSConfig(cfg.CAFile, cfg.InsecureTLS)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if tlsConfig != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConfig
		httpClient.Transport = transport
	}

	return NewWithHTTPClient(cfg.UploadURL(), httpClient, logger), nil
}

// NewWithHTTPClient builds a Client posting to url with the given http.Client.
func NewWithHTTPClient(url string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Client{url: url, http: httpClient, logger: logger}
}

// URL returns the upload address.
func (c *Client) URL() string { return c.url }

// WithURL returns a copy of c that posts to url.
func (c *Client) WithURL(url string) *Client {
	cp := *c
	cp.url = url
	return &cp
}

// Post sends file as a multipart form in a single request.
func (c *Client) Post(ctx context.Context, file *upload.File) error {
	content, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer content.Close()

	body, contentType := protocol.NewMultipartBody(file.Name, content)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Printf("POST %s file=%s size=%d request_id=%s", c.url, file.Name, file.Size, requestID)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	io.Copy(io.Discard, resp.Body)
	c.logger.Printf("POST %s -> %d request_id=%s", c.url, resp.StatusCode, requestID)
	return nil
}
