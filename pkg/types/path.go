package types

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// uriPattern is the URI grammar from spec §6.2: scheme://rest.
var uriPattern = regexp.MustCompile(`^([a-z]+)://(.+)$`)

// DefaultDomains is the allowed domain set unless a caller supplies a wider
// set at path-creation time.
var DefaultDomains = []string{"core", "emotion", "knowledge", "event", "system"}

// ParseURI validates uri against the grammar and, if allowedDomains is
// non-empty, checks that the scheme lies in it. It returns the scheme
// (domain) and the remainder.
func ParseURI(uri string, allowedDomains []string) (domain, rest string, err error) {
	m := uriPattern.FindStringSubmatch(uri)
	if m == nil {
		return "", "", fmt.Errorf("invalid uri %q: must match scheme://path", uri)
	}
	domain, rest = m[1], m[2]

	domains := allowedDomains
	if len(domains) == 0 {
		domains = DefaultDomains
	}
	for _, d := range domains {
		if d == domain {
			return domain, rest, nil
		}
	}
	return "", "", fmt.Errorf("invalid uri %q: domain %q not in allowed set %v", uri, domain, domains)
}

// Path is a URI anchor onto a memory.
type Path struct {
	ID        string    `json:"id"`
	MemoryID  string    `json:"memory_id"`
	AgentID   string    `json:"agent_id"`
	URI       string    `json:"uri"`
	Alias     string    `json:"alias,omitempty"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// IsURIPrefix reports whether candidate is either exactly uri or a
// hierarchical child of it, used by recall_path's prefix-match mode.
func IsURIPrefix(uri, candidate string) bool {
	if uri == candidate {
		return true
	}
	return strings.HasPrefix(candidate, strings.TrimSuffix(uri, "/")+"/")
}
