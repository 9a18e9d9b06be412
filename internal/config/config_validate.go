// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package config

import (
	"fmt"
	"path/filepath"

	"github.com/tomtom215/merlion/internal/validation"
)

// Validate checks struct tags first and then the cross-field rules that
// tags cannot express.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validatePrefetch(); err != nil {
		return err
	}
	return c.validateDatasets()
}

func (c *Config) validateSources() error {
	for key, src := range c.Sources {
		if src.ID != key {
			return fmt.Errorf("source %q: id %q does not match its registry key", key, src.ID)
		}
		if src.Auth == AuthSessionToken && src.Provider != ProviderOneMap {
			return fmt.Errorf("source %q: session_token auth is only supported by the onemap provider", key)
		}
		if src.PollDownload && src.Provider != ProviderDataGov {
			return fmt.Errorf("source %q: poll_download requires the datagov provider", key)
		}
		if src.PollDownload && src.Paginated {
			return fmt.Errorf("source %q: poll_download and paginated are mutually exclusive", key)
		}
	}
	return nil
}

func (c *Config) validatePrefetch() error {
	for _, id := range c.Scheduler.Prefetch {
		if _, ok := c.Sources[id]; !ok {
			return fmt.Errorf("scheduler.prefetch: unknown source %q", id)
		}
	}
	return nil
}

func (c *Config) validateDatasets() error {
	for id, name := range c.Bootstrap.Datasets {
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("bootstrap.datasets[%s]: %q must be a plain file name", id, name)
		}
	}
	return nil
}

// MissingCredentials lists the configured sources whose provider lacks the
// credentials their auth kind needs. Such sources still register; their
// fetches fail with Unauthorized until credentials are supplied.
func (c *Config) MissingCredentials() []string {
	var missing []string
	for _, id := range c.SourceIDs() {
		src := c.Sources[id]
		p, _ := c.Providers.Provider(src.Provider)
		switch src.Auth {
		case AuthStaticKey:
			if p.APIKey == "" {
				missing = append(missing, id)
			}
		case AuthSessionToken:
			if p.Email == "" || p.Password == "" {
				missing = append(missing, id)
			}
		}
	}
	return missing
}
