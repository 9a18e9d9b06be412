// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/metrics"
)

// ErrNotReady means the provider is still preparing a dataset download.
var ErrNotReady = errors.New("download not ready")

// pollResponse covers both shapes data.gov.sg has used: the URL either at
// the top level or under data.
type pollResponse struct {
	URL  string `json:"url"`
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	ErrorMsg string `json:"errorMsg"`
}

func (r *pollResponse) downloadURL() string {
	if r.Data.URL != "" {
		return r.Data.URL
	}
	return r.URL
}

// PollDownload asks data.gov.sg once for the download URL of datasetID.
// A dataset that is still being prepared yields an error matching ErrNotReady.
func (c *Client) PollDownload(ctx context.Context, datasetID string) (string, error) {
	p := c.providers[config.ProviderDataGov]
	src := config.SourceConfig{
		ID:       datasetID,
		Provider: config.ProviderDataGov,
		Auth:     config.AuthNone,
	}
	if p.cfg.APIKey != "" {
		src.Auth = config.AuthStaticKey
	}

	target, err := resolveURL(p.cfg.BaseURL, "/v1/public/api/datasets/"+url.PathEscape(datasetID)+"/poll-download", nil)
	if err != nil {
		return "", NewError(KindUnreachable, datasetID, 0, err)
	}
	body, err := c.get(ctx, p, src, target)
	if err != nil {
		return "", err
	}

	var pr pollResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return "", NewError(KindMalformedResponse, datasetID, 0, err)
	}
	u := pr.downloadURL()
	if u == "" {
		return "", NewError(KindUnreachable, datasetID, http.StatusOK, ErrNotReady)
	}
	return u, nil
}

// Open starts an unauthenticated GET of a resolved download URL and hands
// back the body for streaming. The caller closes it.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, NewError(KindDownloadFailed, "", 0, fmt.Errorf("failed to create request: %w", err))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("download", classifyTransport(err).String(), time.Since(start))
		return nil, NewError(KindDownloadFailed, "", 0, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		metrics.RecordUpstreamRequest("download", classifyStatus(resp.StatusCode).String(), time.Since(start))
		return nil, NewError(KindDownloadFailed, "", resp.StatusCode, errors.New(string(readBodyForError(resp.Body))))
	}
	metrics.RecordUpstreamRequest("download", "ok", time.Since(start))
	return resp.Body, nil
}

// requestDataset resolves a poll-download source and fetches the file,
// which must be JSON (GeoJSON for cluster and gantry datasets).
func (c *Client) requestDataset(ctx context.Context, src config.SourceConfig) ([]byte, error) {
	u, err := c.PollDownload(ctx, src.Endpoint)
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			ue.SourceID = src.ID
		}
		return nil, err
	}

	rc, err := c.Open(ctx, u)
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			ue.SourceID = src.ID
			ue.Kind = KindUnreachable
		}
		return nil, err
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxPayloadSize))
	if err != nil {
		return nil, NewError(classifyTransport(err), src.ID, 0, err)
	}
	if !json.Valid(body) {
		return nil, NewError(KindMalformedResponse, src.ID, http.StatusOK, fmt.Errorf("dataset is not valid JSON"))
	}
	return body, nil
}
