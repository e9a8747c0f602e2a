package lexiconnect

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

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
	"github.com/secmon-lab/lexiconnect/pkg/utils/safe"
)

const (
	// DefaultTimeout bounds a single API request
	DefaultTimeout = 15 * time.Second

	maxPages        = 50
	maxResponseSize = 8 << 20
)

// client implements Service over HTTP
type client struct {
	baseURL    *url.URL
	token      string
	userAgent  string
	httpClient *http.Client
}

// Option is a functional option for client configuration
type Option func(*client)

// WithToken sets the bearer token sent with every request
func WithToken(token string) Option {
	return func(c *client) {
		c.token = token
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// New creates a REST client for the LexiConnect API rooted at baseURL
func New(baseURL string, opts ...Option) (Service, error) {
	if baseURL == "" {
		return nil, goerr.New("lexiconnect API base URL is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, goerr.Wrap(err, "invalid lexiconnect API base URL", goerr.V(URLKey, baseURL))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, goerr.New("lexiconnect API base URL must be http or https", goerr.V(URLKey, baseURL))
	}

	c := &client{
		baseURL:    u,
		userAgent:  "lexiconnect-unread-tracker",
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *client) ListCases(ctx context.Context) ([]*model.Case, error) {
	rows, err := decodeList[caseDTO](ctx, c, "/api/cases/")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list cases")
	}

	cases := make([]*model.Case, 0, len(rows))
	for _, row := range rows {
		if row.ID == 0 {
			continue
		}
		cases = append(cases, row.toModel())
	}
	return cases, nil
}

func (c *client) FetchCaseNotes(ctx context.Context, caseID int64) ([]model.Note, error) {
	rows, err := decodeList[noteDTO](ctx, c, fmt.Sprintf("/api/cases/%d/notes/", caseID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch case notes", goerr.V("case_id", caseID))
	}

	notes := make([]model.Note, len(rows))
	for i, row := range rows {
		notes[i] = row.toModel(caseID)
	}
	return notes, nil
}

func (c *client) FetchCaseDocuments(ctx context.Context, caseID int64) ([]model.Document, error) {
	rows, err := decodeList[documentDTO](ctx, c, fmt.Sprintf("/api/cases/%d/documents/", caseID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch case documents", goerr.V("case_id", caseID))
	}

	docs := make([]model.Document, 0, len(rows))
	for _, row := range rows {
		if row.ID == 0 {
			continue
		}
		docs = append(docs, row.toModel(caseID))
	}
	return docs, nil
}

func (c *client) FetchDocumentReviewLinks(ctx context.Context, documentID int64) ([]model.ReviewLink, error) {
	rows, err := decodeList[reviewLinkDTO](ctx, c, fmt.Sprintf("/api/documents/%d/review-links/", documentID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch review links", goerr.V("document_id", documentID))
	}

	links := make([]model.ReviewLink, 0, len(rows))
	for _, row := range rows {
		if link, ok := row.toModel(documentID); ok {
			links = append(links, link)
		}
	}
	return links, nil
}

// decodeList fetches every page of a list endpoint. Rows that fail to decode
// are skipped and logged.
func decodeList[T any](ctx context.Context, c *client, path string) ([]T, error) {
	raws, err := c.getList(ctx, path)
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(raws))
	for i, raw := range raws {
		var row T
		if err := json.Unmarshal(raw, &row); err != nil {
			logging.From(ctx).Warn("skipping malformed row",
				"path", path,
				"index", i,
				"error", err.Error(),
			)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// getList accepts bare arrays and {"results": [...], "next": "..."} pages
func (c *client) getList(ctx context.Context, path string) ([]json.RawMessage, error) {
	next := c.baseURL.String() + path
	var items []json.RawMessage

	for page := 0; next != ""; page++ {
		if page >= maxPages {
			return nil, goerr.Wrap(ErrMalformed, "too many pages", goerr.V(URLKey, path))
		}

		body, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}

		body = bytes.TrimSpace(body)
		if len(body) == 0 {
			break
		}

		if body[0] == '[' {
			var rows []json.RawMessage
			if err := json.Unmarshal(body, &rows); err != nil {
				return nil, goerr.Wrap(ErrMalformed, "failed to decode list", goerr.V(URLKey, next), goerr.V("error", err.Error()))
			}
			items = append(items, rows...)
			break
		}

		var env listEnvelope
		if err := json.Unmarshal(body, &env); err != nil || env.Results == nil {
			return nil, goerr.Wrap(ErrMalformed, "response is neither a list nor a page", goerr.V(URLKey, next))
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(env.Results, &rows); err != nil {
			return nil, goerr.Wrap(ErrMalformed, "failed to decode page results", goerr.V(URLKey, next), goerr.V("error", err.Error()))
		}
		items = append(items, rows...)

		next = ""
		if env.Next != nil && *env.Next != "" {
			ref, err := url.Parse(*env.Next)
			if err != nil {
				return nil, goerr.Wrap(ErrMalformed, "invalid next page URL", goerr.V(URLKey, *env.Next))
			}
			next = c.baseURL.ResolveReference(ref).String()
		}
	}

	return items, nil
}

func (c *client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create request", goerr.V(URLKey, rawURL))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "request failed", goerr.V(URLKey, rawURL))
	}
	defer safe.Drain(ctx, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, goerr.Wrap(ErrUnauthorized, "request rejected",
			goerr.V(StatusCodeKey, resp.StatusCode), goerr.V(URLKey, rawURL))
	case resp.StatusCode == http.StatusNotFound:
		return nil, goerr.Wrap(ErrNotFound, "resource not found",
			goerr.V(StatusCodeKey, resp.StatusCode), goerr.V(URLKey, rawURL))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, goerr.Wrap(ErrUnexpectedStatus, "request failed",
			goerr.V(StatusCodeKey, resp.StatusCode), goerr.V(URLKey, rawURL))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read response body", goerr.V(URLKey, rawURL))
	}
	return body, nil
}
