// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/merlion/internal/config"
)

func testProviders(base string) config.ProvidersConfig {
	p := func() config.ProviderConfig {
		return config.ProviderConfig{BaseURL: base, APIKey: "key-123", RequestsPerSecond: 100, Burst: 100, Timeout: 2 * time.Second}
	}
	cfg := config.ProvidersConfig{DataMall: p(), DataGov: p(), OneMap: p()}
	cfg.OneMap.TokenURL = base + "/token"
	cfg.OneMap.Email = "user@example.com"
	cfg.OneMap.Password = "secret"
	return cfg
}

func TestRequest_StaticKeyHeaders(t *testing.T) {
	tests := []struct {
		provider string
		header   string
	}{
		{config.ProviderDataMall, "AccountKey"},
		{config.ProviderDataGov, "X-Api-Key"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			var (
				mu  sync.Mutex
				got string
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				got = r.Header.Get(tt.header)
				mu.Unlock()
				w.Write([]byte(`{"ok":true}`))
			}))
			defer srv.Close()

			c := NewClient(testProviders(srv.URL))
			src := config.SourceConfig{ID: "s", Provider: tt.provider, Auth: config.AuthStaticKey, Endpoint: "/feed"}
			body, err := c.Request(context.Background(), src, nil)
			if err != nil {
				t.Fatalf("Request() error = %v", err)
			}
			if string(body) != `{"ok":true}` {
				t.Errorf("body = %s", body)
			}
			mu.Lock()
			defer mu.Unlock()
			if got != "key-123" {
				t.Errorf("%s header = %q, want key-123", tt.header, got)
			}
		})
	}
}

func TestRequest_NoAuthSendsNoKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "" {
			t.Error("unexpected key header on unauthenticated source")
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "weather", Provider: config.ProviderDataGov, Auth: config.AuthNone, Endpoint: srv.URL + "/v1/weather"}
	if _, err := c.Request(context.Background(), src, nil); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
}

func TestRequest_RateLimitedIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "bus-stop", Provider: config.ProviderDataMall, Auth: config.AuthStaticKey, Endpoint: "/BusStops"}
	_, err := c.Request(context.Background(), src, nil)

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if KindOf(err) != KindRateLimited {
		t.Errorf("KindOf = %v", KindOf(err))
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server saw %d calls, want 1", n)
	}
}

func TestRequest_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthorized},
		{http.StatusForbidden, ErrUnauthorized},
		{http.StatusServiceUnavailable, ErrUnreachable},
		{http.StatusNotFound, ErrUnreachable},
		{http.StatusGatewayTimeout, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			c := NewClient(testProviders(srv.URL))
			src := config.SourceConfig{ID: "psi", Provider: config.ProviderDataGov, Auth: config.AuthStaticKey, Endpoint: "/psi"}
			_, err := c.Request(context.Background(), src, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("status %d: got %v, want %v", tt.status, err, tt.want)
			}
			var ue *Error
			if !errors.As(err, &ue) || ue.Status != tt.status || ue.SourceID != "psi" {
				t.Errorf("expected *Error with status and source, got %#v", err)
			}
		})
	}
}

func TestRequest_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "uv", Provider: config.ProviderDataGov, Auth: config.AuthStaticKey, Endpoint: "/uv"}
	_, err := c.Request(context.Background(), src, nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestRequest_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	providers := testProviders(srv.URL)
	providers.DataGov.Timeout = 50 * time.Millisecond
	c := NewClient(providers)
	src := config.SourceConfig{ID: "psi", Provider: config.ProviderDataGov, Auth: config.AuthStaticKey, Endpoint: "/psi"}

	_, err := c.Request(context.Background(), src, nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestRequest_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := NewClient(testProviders(base))
	src := config.SourceConfig{ID: "psi", Provider: config.ProviderDataGov, Auth: config.AuthStaticKey, Endpoint: "/psi"}
	_, err := c.Request(context.Background(), src, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestRequest_UnknownProvider(t *testing.T) {
	c := NewClient(testProviders("http://127.0.0.1:1"))
	_, err := c.Request(context.Background(), config.SourceConfig{ID: "x", Provider: "ftp"}, nil)
	if KindOf(err) != KindUnreachable {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

// oneMapServer issues tok-1, tok-2, ... and accepts only tokens listed in valid.
type oneMapServer struct {
	logins   int32
	requests int32
	valid    func(token string) bool
}

func (s *oneMapServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			if r.Method != http.MethodPost {
				t.Errorf("token method = %s, want POST", r.Method)
			}
			var body tokenRequest
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email != "user@example.com" {
				http.Error(w, "bad creds", http.StatusBadRequest)
				return
			}
			n := atomic.AddInt32(&s.logins, 1)
			fmt.Fprintf(w, `{"access_token":"tok-%d","expiry_timestamp":"1700000000"}`, n)
			return
		}
		atomic.AddInt32(&s.requests, 1)
		if !s.valid(r.Header.Get("Authorization")) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"results":[]}`))
	})
}

func TestRequest_SessionTokenReauthOnce(t *testing.T) {
	om := &oneMapServer{valid: func(tok string) bool { return tok == "tok-2" }}
	srv := httptest.NewServer(om.handler(t))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "nearby-mrt", Provider: config.ProviderOneMap, Auth: config.AuthSessionToken, Endpoint: "/nearby"}

	if _, err := c.Request(context.Background(), src, url.Values{"latitude": {"1.3"}}); err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if got := atomic.LoadInt32(&om.logins); got != 2 {
		t.Errorf("logins = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&om.requests); got != 2 {
		t.Errorf("data requests = %d, want 2", got)
	}

	// The refreshed token is reused.
	if _, err := c.Request(context.Background(), src, nil); err != nil {
		t.Fatalf("second Request() error = %v", err)
	}
	if got := atomic.LoadInt32(&om.logins); got != 2 {
		t.Errorf("logins after reuse = %d, want 2", got)
	}
}

func TestRequest_SessionTokenSurfacesSecond401(t *testing.T) {
	om := &oneMapServer{valid: func(string) bool { return false }}
	srv := httptest.NewServer(om.handler(t))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "nearby-mrt", Provider: config.ProviderOneMap, Auth: config.AuthSessionToken, Endpoint: "/nearby"}

	_, err := c.Request(context.Background(), src, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := atomic.LoadInt32(&om.requests); got != 2 {
		t.Errorf("data requests = %d, want exactly 2 (one re-auth)", got)
	}
}

func TestRequest_SessionTokenMissingCredentials(t *testing.T) {
	providers := testProviders("http://127.0.0.1:1")
	providers.OneMap.Password = ""
	c := NewClient(providers)
	src := config.SourceConfig{ID: "nearby-mrt", Provider: config.ProviderOneMap, Auth: config.AuthSessionToken, Endpoint: "/nearby"}

	_, err := c.Request(context.Background(), src, nil)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRequest_Pagination(t *testing.T) {
	var (
		mu    sync.Mutex
		skips []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "$skip=") {
			t.Errorf("raw query %q should carry a literal $skip", r.URL.RawQuery)
		}
		skip, _ := strconv.Atoi(r.URL.Query().Get("$skip"))
		mu.Lock()
		skips = append(skips, r.URL.Query().Get("$skip"))
		mu.Unlock()
		n := PageSize
		if skip >= 2*PageSize {
			n = 3
		}
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf(`{"BusStopCode":"%05d"}`, skip+i)
		}
		fmt.Fprintf(w, `{"odata.metadata":"x","value":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "bus-stop", Provider: config.ProviderDataMall, Auth: config.AuthStaticKey, Endpoint: "/BusStops", Paginated: true}
	body, err := c.Request(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}

	var out struct {
		Value []map[string]string `json:"value"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Value) != 2*PageSize+3 {
		t.Errorf("records = %d, want %d", len(out.Value), 2*PageSize+3)
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(skips, ",") != "0,500,1000" {
		t.Errorf("skips = %v", skips)
	}
}

func TestRequest_PaginationPageLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		items := make([]string, PageSize)
		for i := range items {
			items[i] = `{"TaxiCode":"T"}`
		}
		fmt.Fprintf(w, `{"value":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL), WithMaxPages(3))
	src := config.SourceConfig{ID: "taxi-stand", Provider: config.ProviderDataMall, Auth: config.AuthStaticKey, Endpoint: "/TaxiStands", Paginated: true}
	body, err := c.Request(context.Background(), src, nil)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("Request() error = %v, want ErrMalformedResponse", err)
	}
	if body != nil {
		t.Errorf("body = %d bytes, want nil", len(body))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("pages requested = %d, want 3", got)
	}
}

func TestRequest_PollDownloadSource(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/public/api/datasets/d_zika/poll-download":
			fmt.Fprintf(w, `{"code":0,"data":{"url":"%s/files/zika.geojson"}}`, srvURL)
		case "/files/zika.geojson":
			w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	c := NewClient(testProviders(srv.URL))
	src := config.SourceConfig{ID: "zika", Provider: config.ProviderDataGov, Auth: config.AuthStaticKey, Endpoint: "d_zika", PollDownload: true}
	body, err := c.Request(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	if !strings.Contains(string(body), "FeatureCollection") {
		t.Errorf("body = %s", body)
	}
}

func TestPollDownload_NotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	_, err := c.PollDownload(context.Background(), "d_x")
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestPollDownload_TopLevelURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://example.com/file.csv"}`))
	}))
	defer srv.Close()

	c := NewClient(testProviders(srv.URL))
	u, err := c.PollDownload(context.Background(), "d_x")
	if err != nil {
		t.Fatalf("PollDownload() error = %v", err)
	}
	if u != "https://example.com/file.csv" {
		t.Errorf("url = %q", u)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, endpoint string
		params         url.Values
		want           string
	}{
		{"https://a.sg/api/", "/psi", nil, "https://a.sg/api/psi"},
		{"https://a.sg", "https://b.sg/v1/x", nil, "https://b.sg/v1/x"},
		{"https://a.sg", "/weather?api=wbgt", url.Values{"date": {"2024-01-01"}}, "https://a.sg/weather?api=wbgt&date=2024-01-01"},
		{"https://a.sg", "/BusStops", url.Values{"$skip": {"500"}}, "https://a.sg/BusStops?$skip=500"},
	}
	for _, tt := range tests {
		got, err := resolveURL(tt.base, tt.endpoint, tt.params)
		if err != nil {
			t.Errorf("resolveURL(%q, %q) error = %v", tt.base, tt.endpoint, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.endpoint, got, tt.want)
		}
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{NewError(KindRateLimited, "psi", 429, nil), KindRateLimited},
		{fmt.Errorf("wrapped: %w", ErrMalformedResponse), KindMalformedResponse},
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("connection refused"), KindUnreachable},
	}
	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
	if KindStaleServed.String() != "stale_served" {
		t.Errorf("KindStaleServed.String() = %q", KindStaleServed.String())
	}
}
