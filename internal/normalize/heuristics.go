package normalize

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/crypto/blake2b"

	"github.com/jonathan/job-aggregator/internal/raw"
	"github.com/jonathan/job-aggregator/internal/types"
)

// -----------------------------------------------------------------------------
// Source identity
// -----------------------------------------------------------------------------

// IDCandidates are the identity sources in resolution order.
type IDCandidates struct {
	PostingID   string // platform-native posting identifier
	EntityRef   string // site-specific opaque entity reference
	TrackingRef string // tracking reference
	URL         string // source URL, hashed when nothing better exists
}

// ResolveSourceID returns the first usable identifier. unstable is true when
// only the timestamp fallback was available.
func ResolveSourceID(c IDCandidates, now time.Time) (id string, unstable bool) {
	for _, candidate := range []string{c.PostingID, c.EntityRef, c.TrackingRef} {
		if s := strings.TrimSpace(candidate); s != "" {
			return s, false
		}
	}
	if h := URLHash(c.URL); h != "" {
		return h, false
	}
	return "ts-" + strconv.FormatInt(now.UnixNano(), 10), true
}

// URLHash derives a deterministic identifier from a URL. Fragments and a
// trailing slash are ignored; an empty URL yields "".
func URLHash(u string) string {
	u = strings.TrimSpace(u)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	u = strings.TrimRight(u, "/")
	if u == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(strings.ToLower(u)))
	return "url-" + hex.EncodeToString(sum[:8])
}

// urnSuffix returns the part after the last ':' of a URN-like reference.
func urnSuffix(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndexByte(ref, ':'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// -----------------------------------------------------------------------------
// Work mode
// -----------------------------------------------------------------------------

// Hybrid terms are checked before remote ones: "télétravail partiel" contains "télétravail".
var (
	hybridTerms = []string{
		"télétravail partiel", "partiellement remote", "hybride", "hybrid", "mixte", "2-3 jours",
		"flexible remote", "remote partiel",
	}
	remoteTerms = []string{
		"100% remote", "full remote", "fully remote", "télétravail", "teletravail",
		"travail à distance", "home office", "distanciel", "nomade", "remote",
	}
)

// WorkModeSignal gathers everything a source tells us about the work mode.
type WorkModeSignal struct {
	RemoteFlag  bool
	Label       string
	Title       string
	Description string
	Location    string
}

// InferWorkMode always returns one of the four canonical modes.
func InferWorkMode(s WorkModeSignal) types.WorkMode {
	if s.RemoteFlag {
		return types.WorkModeRemote
	}
	if mode, ok := types.ParseWorkMode(s.Label); ok {
		return mode
	}

	// A free-text label such as "Télétravail partiel" is scanned with the rest.
	text := strings.ToLower(s.Label + " " + s.Title + " " + s.Description + " " + s.Location)
	for _, term := range hybridTerms {
		if strings.Contains(text, term) {
			return types.WorkModeHybrid
		}
	}
	for _, term := range remoteTerms {
		if strings.Contains(text, term) {
			return types.WorkModeRemote
		}
	}

	if strings.TrimSpace(s.Location) == "" && strings.TrimSpace(s.Description) == "" {
		return types.WorkModeUnknown
	}
	return types.WorkModeOnSite
}

// -----------------------------------------------------------------------------
// Text
// -----------------------------------------------------------------------------

// CleanText strips markup from s when it looks like HTML and normalizes
// whitespace line by line.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			doc.Find("script, style, noscript").Remove()
			doc.Find("br").ReplaceWithHtml("\n")
			doc.Find("p, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, sel *goquery.Selection) {
				sel.AppendHtml("\n")
			})
			s = doc.Text()
		}
	}

	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}

// -----------------------------------------------------------------------------
// Dates
// -----------------------------------------------------------------------------

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// ParseTime parses the date formats seen across sources. Unparseable input yields nil.
func ParseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return epochTime(n)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// epochTime interprets n as milliseconds when it is too large to be seconds.
// Small values are not plausible timestamps.
func epochTime(n int64) *time.Time {
	var t time.Time
	switch {
	case n > 1e11:
		t = time.UnixMilli(n).UTC()
	case n >= 1e8:
		t = time.Unix(n, 0).UTC()
	default:
		return nil
	}
	return &t
}

// postedAt resolves the first path that holds an epoch number or a date string.
func postedAt(rec raw.Record, paths ...raw.Path) *time.Time {
	for _, p := range paths {
		if n, ok := rec.Int64(p...); ok {
			if t := epochTime(n); t != nil {
				return t
			}
		}
		if t := ParseTime(rec.String(p...)); t != nil {
			return t
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Salary
// -----------------------------------------------------------------------------

// FormatSalary renders a salary range. Zero bounds are omitted.
func FormatSalary(lo, hi float64, currency, period string) string {
	var amount string
	switch {
	case lo > 0 && hi > 0 && lo != hi:
		amount = fmt.Sprintf("%s - %s", formatAmount(lo), formatAmount(hi))
	case lo > 0:
		amount = formatAmount(lo)
	case hi > 0:
		amount = formatAmount(hi)
	default:
		return ""
	}
	if currency = strings.TrimSpace(currency); currency != "" {
		amount += " " + strings.ToUpper(currency)
	}
	if period = strings.TrimSpace(period); period != "" {
		amount += " / " + strings.ToLower(period)
	}
	return amount
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func salaryFrom(rec raw.Record, minPath, maxPath raw.Path, currency, period string) string {
	lo, _ := rec.Float64(minPath...)
	hi, _ := rec.Float64(maxPath...)
	return FormatSalary(lo, hi, currency, period)
}
