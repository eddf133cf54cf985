package fetch

import (
	"context"
	"net/http"

	"github.com/threatrelay/advisory-backend/model"
)

// ScrapeFetcher is the placeholder for HTML-scraping sources. Scraping is
// per-site work that has not been built yet, so it returns an empty batch
// rather than an error: a scrape source in the catalog must not fail the
// whole sync.
type ScrapeFetcher struct {
	client *http.Client
}

func NewScrapeFetcher(client *http.Client) *ScrapeFetcher {
	return &ScrapeFetcher{client: client}
}

func (f *ScrapeFetcher) Fetch(ctx context.Context, source model.Source) ([]model.AlertCandidate, error) {
	return []model.AlertCandidate{}, nil
}
