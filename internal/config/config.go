// Package config loads the source catalog seed file and applies it to the
// store at startup.
package config

import (
	"context"
	"os"

	"github.com/arangodb/go-driver/v2/arangodb"
	"gopkg.in/yaml.v2"

	"github.com/threatrelay/advisory-backend/database"
	"github.com/threatrelay/advisory-backend/model"
)

// SourceSeed is one catalog entry in the seed file
type SourceSeed struct {
	Name                string `yaml:"name"`
	Endpoint            string `yaml:"endpoint"`
	FetchMechanism      string `yaml:"fetch_mechanism"`
	Active              bool   `yaml:"active"`
	PollIntervalMinutes int    `yaml:"poll_interval_mins"`
}

// SeedFile is the top-level seed document
type SeedFile struct {
	Sources []SourceSeed `yaml:"sources"`
}

// DefaultSeeds is applied when no seed file is configured
var DefaultSeeds = []SourceSeed{
	{
		Name:                "nvd",
		Endpoint:            "https://services.nvd.nist.gov/rest/json/cves/2.0",
		FetchMechanism:      "api",
		Active:              true,
		PollIntervalMinutes: 240,
	},
	{
		Name:                "cisa-advisories",
		Endpoint:            "https://www.cisa.gov/cybersecurity-advisories/all.xml",
		FetchMechanism:      "rss",
		Active:              true,
		PollIntervalMinutes: 360,
	},
	{
		Name:                "vendor-bulletins",
		Endpoint:            "https://advisories.vendor.example/bulletins",
		FetchMechanism:      "scrape",
		Active:              false,
		PollIntervalMinutes: 1440,
	},
}

// LoadSeeds reads the seed file at path. An empty path yields the default
// catalog.
func LoadSeeds(path string) ([]SourceSeed, error) {
	if path == "" {
		return DefaultSeeds, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file SeedFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Sources, nil
}

// SeedSources upserts each seed into the sources collection by name. Seeds
// never overwrite last_checked, so restart does not re-trigger full polls.
// Invalid mechanisms are skipped rather than failing startup.
func SeedSources(ctx context.Context, db database.DBConnection, seeds []SourceSeed) error {
	query := `UPSERT { name: @name }
		INSERT {
			name: @name,
			endpoint: @endpoint,
			fetch_mechanism: @mechanism,
			active: @active,
			poll_interval_mins: @interval,
			last_checked: null,
			objtype: "Source"
		}
		UPDATE {
			endpoint: @endpoint,
			fetch_mechanism: @mechanism,
			active: @active,
			poll_interval_mins: @interval
		}
		IN sources`

	for _, seed := range seeds {
		if !model.FetchMechanism(seed.FetchMechanism).IsValid() {
			continue
		}
		cursor, err := db.Database.Query(ctx, query, &arangodb.QueryOptions{
			BindVars: map[string]interface{}{
				"name":      seed.Name,
				"endpoint":  seed.Endpoint,
				"mechanism": seed.FetchMechanism,
				"active":    seed.Active,
				"interval":  seed.PollIntervalMinutes,
			},
		})
		if err != nil {
			return err
		}
		cursor.Close()
	}
	return nil
}
