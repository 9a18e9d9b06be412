// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/merlion/internal/config"
	"github.com/tomtom215/merlion/internal/logging"
)

const (
	// PageSize is the fixed DataMall page length.
	PageSize = 500

	// defaultMaxPages stops a misbehaving endpoint from paging forever.
	defaultMaxPages = 400
)

// page is one DataMall OData response.
type page struct {
	Value []json.RawMessage `json:"value"`
}

// errTooManyPages means the page cap was hit before a short page.
var errTooManyPages = errors.New("no short page within page limit")

// requestAllPages walks $skip until a short page and concatenates the
// value arrays. Hitting the page cap first is a MalformedResponse.
func (c *Client) requestAllPages(ctx context.Context, p *provider, src config.SourceConfig, params url.Values) ([]byte, error) {
	var all []json.RawMessage

	complete := false
	for n := 0; n < c.maxPages; n++ {
		q := url.Values{}
		for k, vs := range params {
			q[k] = vs
		}
		q.Set("$skip", strconv.Itoa(n*PageSize))

		target, err := resolveURL(p.cfg.BaseURL, src.Endpoint, q)
		if err != nil {
			return nil, NewError(KindUnreachable, src.ID, 0, err)
		}
		body, err := c.get(ctx, p, src, target)
		if err != nil {
			return nil, err
		}

		var pg page
		if err := json.Unmarshal(body, &pg); err != nil {
			return nil, NewError(KindMalformedResponse, src.ID, 0, fmt.Errorf("page %d: %w", n, err))
		}
		all = append(all, pg.Value...)
		if len(pg.Value) < PageSize {
			logging.Ctx(ctx).Debug().
				Str("source", src.ID).
				Int("pages", n+1).
				Int("records", len(all)).
				Msg("Fetched all pages")
			complete = true
			break
		}
	}
	if !complete {
		logging.Ctx(ctx).Warn().
			Str("source", src.ID).
			Int("pages", c.maxPages).
			Int("records", len(all)).
			Msg("Page limit reached, discarding truncated result")
		return nil, NewError(KindMalformedResponse, src.ID, 0, fmt.Errorf("%d pages: %w", c.maxPages, errTooManyPages))
	}

	if all == nil {
		all = []json.RawMessage{}
	}
	out, err := json.Marshal(page{Value: all})
	if err != nil {
		return nil, NewError(KindMalformedResponse, src.ID, 0, err)
	}
	return out, nil
}
