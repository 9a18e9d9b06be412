// Merlion - Singapore Live Data Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/merlion

package scheduler

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/tomtom215/merlion/internal/config"
)

// Pacer holds one token bucket per provider. DataMall and data.gov.sg keys
// carry separate quotas, so they are paced separately.
type Pacer struct {
	limiters map[string]*rate.Limiter
}

// NewPacer builds limiters from the provider settings.
func NewPacer(cfg config.ProvidersConfig) *Pacer {
	p := &Pacer{limiters: make(map[string]*rate.Limiter, 3)}
	for _, name := range []string{config.ProviderDataMall, config.ProviderDataGov, config.ProviderOneMap} {
		pcfg, ok := cfg.Provider(name)
		if !ok || pcfg.RequestsPerSecond <= 0 {
			continue
		}
		burst := pcfg.Burst
		if burst < 1 {
			burst = 1
		}
		p.limiters[name] = rate.NewLimiter(rate.Limit(pcfg.RequestsPerSecond), burst)
	}
	return p
}

// Wait blocks until provider may send another request or ctx ends.
// Providers without a limiter are not paced.
func (p *Pacer) Wait(ctx context.Context, provider string) error {
	l, ok := p.limiters[provider]
	if !ok {
		return nil
	}
	return l.Wait(ctx)
}
