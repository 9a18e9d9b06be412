// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

// Package upstream executes authenticated HTTP requests against the
// Singapore data providers (LTA DataMall, data.gov.sg, OneMap).
//
// The client knows nothing about caching or concurrency. It turns a source
// descriptor plus query parameters into a raw JSON payload or a typed
// *Error. Apart from a single re-login after a 401 on session-token
// sources, it never retries.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/logging"
	"github.com/tomtom215/merlion/internal/metrics"
)

const (
	// maxErrorBodySize caps how much of an error body is read into messages.
	maxErrorBodySize = 64 * 1024

	// maxPayloadSize caps a single response body.
	maxPayloadSize = 64 << 20
)

// Pacer delays outbound requests per provider. The scheduler supplies one
// so that every page of a paginated source is paced, not just the first.
type Pacer interface {
	Wait(ctx context.Context, provider string) error
}

// Requester is the contract the scheduler and bootstrapper depend on.
type Requester interface {
	Request(ctx context.Context, src config.SourceConfig, params url.Values) ([]byte, error)
}

type provider struct {
	name    string
	cfg     config.ProviderConfig
	breaker *gobreaker.CircuitBreaker[[]byte]
	session *sessionToken
}

// Client is the APIClient. Safe for concurrent use.
type Client struct {
	http      *http.Client
	providers map[string]*provider
	pacer     Pacer
	maxPages  int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithPacer installs a per-provider pacer.
func WithPacer(p Pacer) Option {
	return func(c *Client) { c.pacer = p }
}

// WithMaxPages caps how many pages a paginated source may span.
func WithMaxPages(n int) Option {
	return func(c *Client) { c.maxPages = n }
}

// NewClient builds a client for the three configured providers.
func NewClient(cfg config.ProvidersConfig, opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 30 * time.Second},
		providers: make(map[string]*provider, 3),
		maxPages:  defaultMaxPages,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, name := range []string{config.ProviderDataMall, config.ProviderDataGov, config.ProviderOneMap} {
		pcfg, _ := cfg.Provider(name)
		p := &provider{name: name, cfg: pcfg, breaker: newBreaker(name)}
		if pcfg.TokenURL != "" {
			p.session = &sessionToken{
				tokenURL: pcfg.TokenURL,
				creds:    tokenRequest{Email: pcfg.Email, Password: pcfg.Password, APIKey: pcfg.APIKey},
				http:     c.http,
			}
		}
		c.providers[name] = p
	}
	return c
}

// Request fetches src with params and returns the raw JSON payload.
// Paginated sources are walked to the end and returned as one
// {"value": [...]} document.
func (c *Client) Request(ctx context.Context, src config.SourceConfig, params url.Values) ([]byte, error) {
	p, ok := c.providers[src.Provider]
	if !ok {
		return nil, NewError(KindUnreachable, src.ID, 0, fmt.Errorf("unknown provider %q", src.Provider))
	}
	if src.PollDownload {
		return c.requestDataset(ctx, src)
	}
	if src.Paginated {
		return c.requestAllPages(ctx, p, src, params)
	}
	target, err := resolveURL(p.cfg.BaseURL, src.Endpoint, params)
	if err != nil {
		return nil, NewError(KindUnreachable, src.ID, 0, err)
	}
	return c.get(ctx, p, src, target)
}

// get runs one logical GET: pacing, breaker, and the single re-login.
func (c *Client) get(ctx context.Context, p *provider, src config.SourceConfig, target string) ([]byte, error) {
	if c.pacer != nil {
		if err := c.pacer.Wait(ctx, p.name); err != nil {
			return nil, NewError(KindTimeout, src.ID, 0, err)
		}
	}

	body, err := p.breaker.Execute(func() ([]byte, error) {
		b, err := c.do(ctx, p, src, target)
		var rejected *Error
		if errors.As(err, &rejected) && rejected.Kind == KindUnauthorized && rejected.token != "" {
			// The token was refused, probably expired: log in again, exactly once.
			metrics.UpstreamReauth.WithLabelValues(p.name).Inc()
			logging.Ctx(ctx).Debug().Str("source", src.ID).Msg("Re-authenticating after 401")
			p.session.invalidate(rejected.token)
			b, err = c.do(ctx, p, src, target)
		}
		return b, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, NewError(KindUnreachable, src.ID, 0, err)
	}
	return body, err
}

// do performs exactly one HTTP exchange.
func (c *Client) do(ctx context.Context, p *provider, src config.SourceConfig, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, NewError(KindUnreachable, src.ID, 0, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	var token string
	switch src.Auth {
	case config.AuthStaticKey:
		req.Header.Set(keyHeader(p.name), p.cfg.APIKey)
	case config.AuthSessionToken:
		if p.session == nil {
			return nil, NewError(KindUnauthorized, src.ID, 0, fmt.Errorf("provider %s has no token endpoint", p.name))
		}
		token, err = p.session.get(ctx)
		if err != nil {
			var ue *Error
			if errors.As(err, &ue) {
				ue.SourceID = src.ID
			}
			return nil, err
		}
		req.Header.Set("Authorization", token)
	}

	if p.cfg.Timeout > 0 {
		reqCtx, cancel := context.WithTimeout(req.Context(), p.cfg.Timeout)
		defer cancel()
		req = req.WithContext(reqCtx)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		kind := classifyTransport(err)
		metrics.RecordUpstreamRequest(p.name, kind.String(), time.Since(start))
		return nil, NewError(kind, src.ID, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		metrics.RecordUpstreamRequest(p.name, kind.String(), time.Since(start))
		return nil, &Error{
			Kind:     kind,
			SourceID: src.ID,
			Status:   resp.StatusCode,
			Err:      errors.New(string(readBodyForError(resp.Body))),
			token:    token,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		kind := classifyTransport(err)
		metrics.RecordUpstreamRequest(p.name, kind.String(), time.Since(start))
		return nil, NewError(kind, src.ID, resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}
	if !json.Valid(body) {
		metrics.RecordUpstreamRequest(p.name, KindMalformedResponse.String(), time.Since(start))
		return nil, NewError(KindMalformedResponse, src.ID, resp.StatusCode, fmt.Errorf("body is not valid JSON"))
	}

	metrics.RecordUpstreamRequest(p.name, "ok", time.Since(start))
	logging.Ctx(ctx).Debug().
		Str("source", src.ID).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Upstream request complete")
	return body, nil
}

// keyHeader names the static key header per provider.
func keyHeader(provider string) string {
	switch provider {
	case config.ProviderDataMall:
		return "AccountKey"
	case config.ProviderDataGov:
		return "X-Api-Key"
	default:
		return "Authorization"
	}
}

// resolveURL joins a relative endpoint onto base and merges params into
// any query the endpoint already carries.
func resolveURL(base, endpoint string, params url.Values) (string, error) {
	raw := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			q.Del(k)
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		// DataMall rejects an encoded "$" in $skip.
		u.RawQuery = strings.ReplaceAll(q.Encode(), "%24", "$")
	}
	return u.String(), nil
}

func classifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindUnreachable
	}
}

func classifyTransport(err error) Kind {
	if k := KindOf(err); k == KindTimeout {
		return k
	}
	return KindUnreachable
}

// readBodyForError reads at most maxErrorBodySize bytes for error messages.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("... (truncated)")...)
	}
	return body
}
