package fetch

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/threatrelay/advisory-backend/model"
)

// RSSFetcher parses an RSS 2.0 feed into alert candidates
type RSSFetcher struct {
	client *http.Client
}

func NewRSSFetcher(client *http.Client) *RSSFetcher {
	return &RSSFetcher{client: client}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title" json:"title"`
	Link        string `xml:"link" json:"link"`
	Description string `xml:"description" json:"description"`
	PubDate     string `xml:"pubDate" json:"pubDate"`
	GUID        string `xml:"guid" json:"guid"`
}

// rssDateFormats are tried in order when parsing pubDate
var rssDateFormats = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func (f *RSSFetcher) Fetch(ctx context.Context, source model.Source) ([]model.AlertCandidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.Endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source %s: request failed: %w", source.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s: unexpected status %d", source.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err = xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("source %s: feed parse failed: %w", source.Name, err)
	}

	candidates := make([]model.AlertCandidate, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		candidates = append(candidates, convertItem(item))
	}
	return candidates, nil
}

func convertItem(item rssItem) model.AlertCandidate {
	raw, _ := json.Marshal(item)

	c := model.AlertCandidate{
		ExternalID:  itemExternalID(item),
		Title:       strings.TrimSpace(item.Title),
		Description: strings.TrimSpace(item.Description),
		Severity:    rssSeverity(item),
		URL:         item.Link,
		RawData:     raw,
	}

	for _, layout := range rssDateFormats {
		if t, err := time.Parse(layout, item.PubDate); err == nil {
			c.PublishedDate = t.UTC()
			break
		}
	}
	return c
}

// itemExternalID prefers the feed's guid, then the link, then a random
// identifier so the item is never dropped for lacking one. A random id
// means the item cannot be deduplicated across fetches, which is the
// lesser evil.
func itemExternalID(item rssItem) string {
	if g := strings.TrimSpace(item.GUID); g != "" {
		return g
	}
	if l := strings.TrimSpace(item.Link); l != "" {
		return l
	}
	return uuid.New().String()
}

// rssSeverity guesses a severity band from the item text. Feeds carry no
// structured score, so keyword hits on the title and description decide:
// critical markers win, then high, then low, with medium as the default.
func rssSeverity(item rssItem) model.Severity {
	text := strings.ToLower(item.Title + " " + item.Description)
	switch {
	case strings.Contains(text, "critical") || strings.Contains(text, "0-day"):
		return model.SeverityCritical
	case strings.Contains(text, "high"):
		return model.SeverityHigh
	case strings.Contains(text, "low"):
		return model.SeverityLow
	default:
		return model.SeverityMedium
	}
}
