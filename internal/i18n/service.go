package i18n

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrCatalogNotFound marks locales the service has no reviewed catalog for.
var ErrCatalogNotFound = errors.New("i18n: catalog not found on service")

// Client talks to a translation service that stores one template per project
// and serves reviewed catalogs per locale.
type Client struct {
	baseURL string
	project string
	token   string
	http    *http.Client
}

// ClientOption customizes the service client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a translation service client.
func NewClient(baseURL, project, token string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("i18n: service url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("i18n: invalid service url: %w", err)
	}
	if project == "" {
		return nil, fmt.Errorf("i18n: service project is required")
	}
	client := &Client{
		baseURL: baseURL,
		project: project,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// PushTemplate uploads the source template so translators see new strings.
func (c *Client) PushTemplate(ctx context.Context, template *Catalog) error {
	var body bytes.Buffer
	if err := template.WritePO(&body); err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/api/projects/%s/template", c.baseURL, url.PathEscape(c.project))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, &body)
	if err != nil {
		return fmt.Errorf("i18n: build push request: %w", err)
	}
	req.Header.Set("Content-Type", "text/x-gettext-translation")
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("i18n: push template: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("i18n: push template: service returned %s", resp.Status)
	}
	return nil
}

// PullCatalog downloads the reviewed catalog for a locale.
func (c *Client) PullCatalog(ctx context.Context, locale string) (*Catalog, error) {
	endpoint := fmt.Sprintf("%s/api/projects/%s/catalogs/%s", c.baseURL, url.PathEscape(c.project), url.PathEscape(locale))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("i18n: build pull request: %w", err)
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("i18n: pull %s: %w", locale, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("pull %s: %w", locale, ErrCatalogNotFound)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("i18n: pull %s: service returned %s", locale, resp.Status)
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("i18n: read catalog for %s: %w", locale, err)
	}
	return ParsePO(locale, bytes.NewReader(payload))
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
