package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/threatrelay/advisory-backend/model"
	"github.com/threatrelay/advisory-backend/util"
)

// apiWindow is the trailing publication window requested from the API
const apiWindow = 7 * 24 * time.Hour

// APIFetcher pulls advisories from an NVD-shaped JSON API. The endpoint is
// queried with a trailing publication window; an API key from the
// environment is attached when present.
type APIFetcher struct {
	client *http.Client
	now    func() time.Time
}

func NewAPIFetcher(client *http.Client) *APIFetcher {
	return &APIFetcher{client: client, now: time.Now}
}

// apiResponse mirrors the NVD 2.0 response envelope
type apiResponse struct {
	Vulnerabilities []struct {
		CVE apiCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type apiCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV31 []apiMetric `json:"cvssMetricV31"`
		CVSSMetricV40 []apiMetric `json:"cvssMetricV40"`
	} `json:"metrics"`
	References []struct {
		URL string `json:"url"`
	} `json:"references"`
}

type apiMetric struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		VectorString string  `json:"vectorString"`
	} `json:"cvssData"`
}

// Fetch queries the source endpoint for advisories published in the last
// seven days and converts each entry into an alert candidate.
func (f *APIFetcher) Fetch(ctx context.Context, source model.Source) ([]model.AlertCandidate, error) {
	end := f.now().UTC()
	start := end.Add(-apiWindow)

	u, err := url.Parse(source.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("source %s: bad endpoint: %w", source.Name, err)
	}
	q := u.Query()
	q.Set("pubStartDate", start.Format("2006-01-02T15:04:05.000"))
	q.Set("pubEndDate", end.Format("2006-01-02T15:04:05.000"))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if key := os.Getenv("ADVISORY_API_KEY"); key != "" {
		req.Header.Set("apiKey", key)
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

	var payload apiResponse
	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("source %s: decode failed: %w", source.Name, err)
	}

	candidates := make([]model.AlertCandidate, 0, len(payload.Vulnerabilities))
	for _, v := range payload.Vulnerabilities {
		candidates = append(candidates, convertCVE(v.CVE))
	}
	return candidates, nil
}

func convertCVE(cve apiCVE) model.AlertCandidate {
	raw, _ := json.Marshal(cve)

	c := model.AlertCandidate{
		ExternalID: cve.ID,
		Title:      cve.ID,
		Severity:   apiSeverity(cve),
		RawData:    raw,
	}

	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			c.Description = d.Value
			break
		}
	}
	if c.Description == "" && len(cve.Descriptions) > 0 {
		c.Description = cve.Descriptions[0].Value
	}

	if t, err := time.Parse("2006-01-02T15:04:05.000", cve.Published); err == nil {
		c.PublishedDate = t.UTC()
	}
	if t, err := time.Parse("2006-01-02T15:04:05.000", cve.LastModified); err == nil {
		c.UpdatedDate = t.UTC()
	}

	if len(cve.References) > 0 {
		c.URL = cve.References[0].URL
	}
	return c
}

// apiSeverity maps the entry's base score onto a severity band. When the
// score is absent but a vector string exists, the score is recomputed from
// the vector. Entries with neither stay informational.
func apiSeverity(cve apiCVE) model.Severity {
	metrics := append(cve.Metrics.CVSSMetricV31, cve.Metrics.CVSSMetricV40...)
	for _, m := range metrics {
		if m.CVSSData.BaseScore > 0 {
			return util.SeverityFromScore(m.CVSSData.BaseScore)
		}
	}
	for _, m := range metrics {
		if m.CVSSData.VectorString != "" {
			if score := util.CalculateCVSSScore(m.CVSSData.VectorString); score > 0 {
				return util.SeverityFromScore(score)
			}
		}
	}
	return model.SeverityInfo
}
