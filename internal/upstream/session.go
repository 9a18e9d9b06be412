// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/merlion/internal/logging"
)

// tokenRequest is the OneMap getToken body.
type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"apikey,omitempty"`
}

type tokenResponse struct {
	AccessToken     string `json:"access_token"`
	ExpiryTimestamp string `json:"expiry_timestamp,omitempty"`
}

// sessionToken caches a short-lived access token obtained by credential
// login. Logins are serialized so a burst of 401s produces one login.
type sessionToken struct {
	mu       sync.Mutex
	token    string
	tokenURL string
	creds    tokenRequest
	http     *http.Client
	logins   int
}

// get returns the cached token, logging in when there is none.
func (s *sessionToken) get(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}
	tok, err := s.login(ctx)
	if err != nil {
		return "", err
	}
	s.token = tok
	return tok, nil
}

// invalidate drops stale if it is still the cached token. A token that was
// already replaced by a concurrent re-login is left alone.
func (s *sessionToken) invalidate(stale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == stale {
		s.token = ""
	}
}

// login must be called with mu held.
func (s *sessionToken) login(ctx context.Context) (string, error) {
	if s.creds.Email == "" || s.creds.Password == "" {
		return "", NewError(KindUnauthorized, "", 0, fmt.Errorf("session credentials not configured"))
	}

	body, err := json.Marshal(s.creds)
	if err != nil {
		return "", fmt.Errorf("failed to encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", NewError(classifyTransport(err), "", 0, fmt.Errorf("token request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		if resp.StatusCode == http.StatusBadRequest {
			// OneMap answers bad credentials with 400.
			kind = KindUnauthorized
		}
		return "", NewError(kind, "", resp.StatusCode, fmt.Errorf("token request: %s", readBodyForError(resp.Body)))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return "", NewError(KindUnreachable, "", resp.StatusCode, err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil || tr.AccessToken == "" {
		return "", NewError(KindMalformedResponse, "", resp.StatusCode, fmt.Errorf("no access_token in token response"))
	}

	s.logins++
	logging.Info().Str("expires", tr.ExpiryTimestamp).Msg("Acquired session token")
	return tr.AccessToken, nil
}
