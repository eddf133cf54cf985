// Package model defines the data structures used by the advisory-backend,
// including monitored sources, alerts, detection rules, and technique mappings.
package model

import "time"

// FetchMechanism represents how a source is polled
type FetchMechanism string

const (
	// FetchMechanismAPI represents a JSON REST API polled over a trailing time window.
	FetchMechanismAPI FetchMechanism = "api"
	// FetchMechanismRSS represents an RSS/Atom style feed.
	FetchMechanismRSS FetchMechanism = "rss"
	// FetchMechanismScrape represents a source that requires HTML scraping.
	// Scrape parsing is supplied by source-specific collaborators; the built-in
	// fetcher returns an empty candidate list.
	FetchMechanismScrape FetchMechanism = "scrape"
)

// AllFetchMechanisms returns all valid fetch mechanisms for validation
var AllFetchMechanisms = []FetchMechanism{
	FetchMechanismAPI, FetchMechanismRSS, FetchMechanismScrape,
}

// IsValid checks if the fetch mechanism is valid
func (m FetchMechanism) IsValid() bool {
	for _, valid := range AllFetchMechanisms {
		if m == valid {
			return true
		}
	}
	return false
}

// Source represents a monitored advisory origin
type Source struct {
	Key                 string         `json:"_key,omitempty"`      // Unique identifier of the source in the database.
	Name                string         `json:"name"`                // Human-readable name (e.g., "nvd", "vendor-blog").
	Endpoint            string         `json:"endpoint"`            // URL polled by the fetcher.
	FetchMechanism      FetchMechanism `json:"fetch_mechanism"`     // One of api, rss, scrape.
	Active              bool           `json:"active"`              // Inactive sources are skipped by the sync job.
	LastChecked         *time.Time     `json:"last_checked"`        // Updated by the ingestion coordinator after each fetch.
	PollIntervalMinutes int            `json:"poll_interval_mins"`  // Advisory polling cadence.
	ObjType             string         `json:"objtype,omitempty"`   // The object type for database indexing (should be "Source").
}

// NewSource creates a new Source instance with default values
func NewSource() *Source {
	return &Source{
		ObjType:             "Source",
		Active:              true,
		PollIntervalMinutes: 240,
	}
}
