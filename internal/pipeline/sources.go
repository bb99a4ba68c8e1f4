package pipeline

import (
	"fmt"
	"net/url"
	"strings"
)

// SourcePolicy captures the per-source quirks the pipeline has to honor:
// which query keys are load-bearing, whether the source needs cookies,
// whether consecutive fetches must be paced, whether the primary format
// strategy is unreliable enough to warrant the single-file fallback, and
// whether one URL may expand into multiple files.
type SourcePolicy struct {
	Name string
	// Hosts are matched against the normalized hostname, including
	// subdomains (suffix match on dot boundaries).
	Hosts []string
	// KeepQueryKeys lists query parameters required to resolve the
	// canonical link. All other query parameters and the fragment are
	// treated as tracking noise and dropped.
	KeepQueryKeys []string
	NeedsAuth     bool
	RateLimited   bool
	// UnreliablePrimary marks sources where the merged best-video+audio
	// preference is known to fail; acquisition gets exactly one retry with
	// the plain single-file preference.
	UnreliablePrimary bool
	// MultiItem marks sources where one URL can expand into a carousel of
	// files and playlist expansion must stay enabled.
	MultiItem bool
}

var sourcePolicies = []SourcePolicy{
	{
		Name:              "instagram",
		Hosts:             []string{"instagram.com", "instagr.am"},
		NeedsAuth:         true,
		RateLimited:       true,
		UnreliablePrimary: true,
		MultiItem:         true,
	},
	{
		Name:          "youtube",
		Hosts:         []string{"youtube.com", "youtu.be", "music.youtube.com"},
		KeepQueryKeys: []string{"v", "list"},
	},
	{
		Name:              "tiktok",
		Hosts:             []string{"tiktok.com"},
		RateLimited:       true,
		UnreliablePrimary: true,
	},
}

// defaultPolicy applies to any host without an explicit entry: strip the
// whole query, no cookies, no pacing, no fallback.
var defaultPolicy = SourcePolicy{Name: "generic"}

// MatchSource returns the policy for a URL's host.
func MatchSource(rawURL string) SourcePolicy {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return defaultPolicy
	}
	host := normalizeHostname(parsed)
	for _, policy := range sourcePolicies {
		for _, candidate := range policy.Hosts {
			if host == candidate || strings.HasSuffix(host, "."+candidate) {
				return policy
			}
		}
	}
	return defaultPolicy
}

// normalizeHostname returns the normalized hostname from a URL:
// lowercase, with "www." prefix removed, and port stripped.
func normalizeHostname(parsed *url.URL) string {
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func validateInputURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", wrapCategory(CategoryInvalidInput, fmt.Errorf("invalid URL: %w", err))
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", wrapCategory(CategoryInvalidInput, fmt.Errorf("invalid URL: missing scheme or host"))
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", wrapCategory(CategoryInvalidInput, fmt.Errorf("unsupported URL scheme: %s", parsed.Scheme))
	}
	return parsed.String(), nil
}

// CleanURL removes tracking query parameters and the fragment. Sources whose
// canonical link format depends on the query keep the keys their policy
// lists; everything else loses the query entirely.
func CleanURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	policy := MatchSource(raw)

	if len(policy.KeepQueryKeys) == 0 {
		parsed.RawQuery = ""
		parsed.Fragment = ""
		return parsed.String()
	}

	query := parsed.Query()
	kept := url.Values{}
	for _, key := range policy.KeepQueryKeys {
		if value := query.Get(key); value != "" {
			kept.Set(key, value)
		}
	}
	parsed.RawQuery = kept.Encode()
	parsed.Fragment = ""
	return parsed.String()
}

// looksLikeCarousel reports whether a URL should keep playlist expansion
// enabled: multi-item sources always, plus explicit playlist URLs.
func looksLikeCarousel(rawURL string, policy SourcePolicy) bool {
	if policy.MultiItem {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return parsed.Query().Get("list") != ""
}
