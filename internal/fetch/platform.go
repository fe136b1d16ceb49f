// Package fetch - platform.go maps job board hosts to source platforms.
package fetch

import (
	"net/url"
	"strings"

	"github.com/jonathan/job-aggregator/internal/types"
)

// PlatformUnknown is returned for hosts that are not recognized.
const PlatformUnknown = "unknown"

var platformHosts = []struct {
	fragment string
	platform string
}{
	{"linkedin.com", types.PlatformLinkedIn},
	{"welcometothejungle.com", types.PlatformWelcomeToTheJungle},
	{"indeed.", types.PlatformIndeed},
	{"glassdoor.", types.PlatformGlassdoor},
	{"adzuna.", types.PlatformAdzuna},
}

// DetectPlatform identifies the source platform from a URL host.
func DetectPlatform(urlStr string) string {
	parsed, err := url.Parse(strings.TrimSpace(urlStr))
	if err != nil || parsed.Host == "" {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Host)
	for _, ph := range platformHosts {
		if strings.Contains(host, ph.fragment) {
			return ph.platform
		}
	}
	return PlatformUnknown
}
