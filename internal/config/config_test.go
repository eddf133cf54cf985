package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeedsDefault(t *testing.T) {
	seeds, err := LoadSeeds("")
	require.NoError(t, err)
	require.NotEmpty(t, seeds)
	assert.Equal(t, "nvd", seeds[0].Name)
	assert.Equal(t, "api", seeds[0].FetchMechanism)
}

func TestLoadSeedsFile(t *testing.T) {
	body := `sources:
  - name: vendor-blog
    endpoint: https://blog.vendor.example/feed.xml
    fetch_mechanism: rss
    active: true
    poll_interval_mins: 120
  - name: internal-scraper
    endpoint: https://advisories.vendor.example
    fetch_mechanism: scrape
    active: false
    poll_interval_mins: 1440
`
	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	seeds, err := LoadSeeds(path)
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "vendor-blog", seeds[0].Name)
	assert.Equal(t, "rss", seeds[0].FetchMechanism)
	assert.Equal(t, 120, seeds[0].PollIntervalMinutes)
	assert.True(t, seeds[0].Active)

	assert.Equal(t, "internal-scraper", seeds[1].Name)
	assert.False(t, seeds[1].Active)
}

func TestLoadSeedsMissingFile(t *testing.T) {
	_, err := LoadSeeds("/nonexistent/sources.yml")
	assert.Error(t, err)
}
