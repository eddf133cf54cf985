// Package analyze extracts structured indicators and coarse attack
// categories from advisory free text. Matching is lexical, not semantic:
// IPv4-shaped tokens with out-of-range octets and syntactically plausible
// non-existent domains are accepted on purpose.
package analyze

import (
	"regexp"
	"strings"
)

// maxPerClass caps matches per underlying pattern class. The three hash
// classes are capped independently before pooling, so Hashes holds at most 15
// entries.
const maxPerClass = 5

// Extraction patterns - compiled once at package init
var (
	md5Pattern    = regexp.MustCompile(`\b[a-fA-F0-9]{32}\b`)
	sha1Pattern   = regexp.MustCompile(`\b[a-fA-F0-9]{40}\b`)
	sha256Pattern = regexp.MustCompile(`\b[a-fA-F0-9]{64}\b`)
	ipv4Pattern   = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	domainPattern = regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}\b`)
)

// Indicators holds the structured tokens extracted from one alert's text.
// Classes are independent; no cross-class deduplication is performed.
type Indicators struct {
	Hashes  []string `json:"hashes"`
	IPs     []string `json:"ips"`
	Domains []string `json:"domains"`
}

// IsEmpty reports whether no indicator of any class was found
func (i Indicators) IsEmpty() bool {
	return len(i.Hashes) == 0 && len(i.IPs) == 0 && len(i.Domains) == 0
}

// ExtractIndicators pulls hash, IP, and domain shaped tokens from text.
// Domains ending in .com/.org or containing "example" are suppressed as
// boilerplate vendor references; that is a heuristic, not a guarantee.
func ExtractIndicators(text string) Indicators {
	var out Indicators

	for _, p := range []*regexp.Regexp{md5Pattern, sha1Pattern, sha256Pattern} {
		matches := p.FindAllString(text, maxPerClass)
		out.Hashes = append(out.Hashes, matches...)
	}

	out.IPs = ipv4Pattern.FindAllString(text, maxPerClass)

	for _, d := range domainPattern.FindAllString(text, -1) {
		lower := strings.ToLower(d)
		if strings.HasSuffix(lower, ".com") || strings.HasSuffix(lower, ".org") {
			continue
		}
		if strings.Contains(lower, "example") {
			continue
		}
		out.Domains = append(out.Domains, d)
		if len(out.Domains) == maxPerClass {
			break
		}
	}

	return out
}
