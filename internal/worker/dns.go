package worker

import (
	"context"
	"time"

	"github.com/rs/dnscache"
)

const dnsRefreshInterval = 5 * time.Minute

// DNSRefresher keeps the upstream DNS cache fresh and drops unused entries.
type DNSRefresher struct {
	resolver *dnscache.Resolver
}

// NewDNSRefresher creates a DNSRefresher for resolver.
func NewDNSRefresher(resolver *dnscache.Resolver) *DNSRefresher {
	return &DNSRefresher{resolver: resolver}
}

// Run refreshes the resolver until ctx is cancelled.
func (w *DNSRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(dnsRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.resolver.Refresh(true)
		case <-ctx.Done():
			return nil
		}
	}
}
