// Package fetch pulls raw advisories from configured upstream sources and
// turns them into alert candidates for ingestion. One fetcher exists per
// fetch mechanism; the dispatcher picks the right one from the source row.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/threatrelay/advisory-backend/model"
)

// requestTimeout bounds a single upstream request
const requestTimeout = 30 * time.Second

// Fetcher retrieves the current batch of alert candidates from a source
type Fetcher interface {
	Fetch(ctx context.Context, source model.Source) ([]model.AlertCandidate, error)
}

// Dispatcher routes each source to the fetcher for its mechanism
type Dispatcher struct {
	fetchers map[model.FetchMechanism]Fetcher
}

// NewDispatcher wires the default fetcher set over a shared HTTP client
func NewDispatcher() *Dispatcher {
	client := &http.Client{Timeout: requestTimeout}
	return &Dispatcher{
		fetchers: map[model.FetchMechanism]Fetcher{
			model.FetchMechanismAPI:    NewAPIFetcher(client),
			model.FetchMechanismRSS:    NewRSSFetcher(client),
			model.FetchMechanismScrape: NewScrapeFetcher(client),
		},
	}
}

// Fetch resolves the fetcher for the source's mechanism and runs it
func (d *Dispatcher) Fetch(ctx context.Context, source model.Source) ([]model.AlertCandidate, error) {
	f, ok := d.fetchers[source.FetchMechanism]
	if !ok {
		return nil, fmt.Errorf("source %s: unsupported fetch mechanism %q", source.Name, source.FetchMechanism)
	}
	return f.Fetch(ctx, source)
}
