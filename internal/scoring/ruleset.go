// Package scoring computes keyword relevance scores and tiers for job records.
package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// KeywordRuleset is the externally supplied set of weighted terms.
type KeywordRuleset struct {
	Name      string   `json:"name" yaml:"name"`
	Primary   []string `json:"primary" yaml:"primary" validate:"dive,required"`
	Secondary []string `json:"secondary" yaml:"secondary" validate:"dive,required"`
	Related   []string `json:"related" yaml:"related" validate:"dive,required"`
	Negative  []string `json:"negative" yaml:"negative" validate:"dive,required"`
}

var validate = validator.New()

// LoadRuleset reads a ruleset from a YAML (.yaml, .yml) or JSON file.
func LoadRuleset(path string) (*KeywordRuleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ruleset %s: %w", path, err)
	}

	var rs KeywordRuleset
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("failed to parse ruleset YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &rs); err != nil {
			return nil, fmt.Errorf("failed to parse ruleset JSON: %w", err)
		}
	}

	normalized := rs.Normalized()
	if err := normalized.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ruleset %s: %w", path, err)
	}
	return normalized, nil
}

// Validate rejects blank terms and rulesets without any positive term.
func (rs *KeywordRuleset) Validate() error {
	if err := validate.Struct(rs); err != nil {
		return err
	}
	if len(rs.Primary)+len(rs.Secondary)+len(rs.Related) == 0 {
		return fmt.Errorf("ruleset needs at least one primary, secondary or related term")
	}
	return nil
}

// Normalized returns a copy with terms lower-cased, trimmed and deduplicated
// within each set. Order of first appearance is kept so match reports are stable.
func (rs *KeywordRuleset) Normalized() *KeywordRuleset {
	return &KeywordRuleset{
		Name:      rs.Name,
		Primary:   normalizeTerms(rs.Primary),
		Secondary: normalizeTerms(rs.Secondary),
		Related:   normalizeTerms(rs.Related),
		Negative:  normalizeTerms(rs.Negative),
	}
}

func normalizeTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// DefaultRuleset targets search engine optimization roles.
func DefaultRuleset() *KeywordRuleset {
	return &KeywordRuleset{
		Name:      "seo",
		Primary:   []string{"seo", "référenceur", "search engine optimization", "search engine"},
		Secondary: []string{"organic", "traffic", "ranking", "google", "keywords", "meta", "backlink", "on-page", "off-page"},
		Related:   []string{"marketing", "digital", "content", "acquisition", "growth", "performance", "analytics", "conversion"},
		Negative:  []string{"casino", "gaming", "gambling", "spontaneous", "general manager", "sales", "business development"},
	}
}
