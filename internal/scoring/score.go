package scoring

import (
	"strings"
	"unicode/utf8"

	"github.com/jonathan/job-aggregator/internal/types"
)

// Term weights per set.
const (
	PrimaryWeight   = 10
	SecondaryWeight = 5
	RelatedWeight   = 2
	NegativeWeight  = -5
)

// Description occurrence caps per set.
const (
	primaryCap   = 3
	secondaryCap = 2
	relatedCap   = 1
)

// Description length bonus.
const (
	longDescriptionChars   = 1000
	mediumDescriptionChars = 500
	longDescriptionBonus   = 3
	mediumDescriptionBonus = 1
)

// Tier lower bounds, inclusive.
const (
	tierAMin = 15
	tierBMin = 8
	tierCMin = 3
	tierDMin = 0
)

type termSet struct {
	terms  []string
	weight int
	cap    int
}

// Score computes the relevance annotation of a record. It is a pure function
// of its inputs; matched terms are reported in ruleset order.
func Score(record *types.JobRecord, rs *KeywordRuleset) types.RelevanceAnnotation {
	title := strings.ToLower(record.Title)
	description := strings.ToLower(record.Description)

	positive := []termSet{
		{terms: rs.Primary, weight: PrimaryWeight, cap: primaryCap},
		{terms: rs.Secondary, weight: SecondaryWeight, cap: secondaryCap},
		{terms: rs.Related, weight: RelatedWeight, cap: relatedCap},
	}

	score := 0
	matched := make([]types.MatchedTerm, 0)

	// Title: once per term, no occurrence cap.
	for _, set := range positive {
		for _, term := range set.terms {
			term, ok := cleanTerm(term)
			if !ok {
				continue
			}
			if strings.Contains(title, term) {
				score += set.weight
				matched = append(matched, types.MatchedTerm{Term: term, Weight: set.weight, Location: types.LocationTitle, Count: 1})
			}
		}
	}

	// Description: count occurrences, capped per set.
	for _, set := range positive {
		for _, term := range set.terms {
			term, ok := cleanTerm(term)
			if !ok {
				continue
			}
			count := strings.Count(description, term)
			if count == 0 {
				continue
			}
			count = min(count, set.cap)
			contribution := set.weight * count
			score += contribution
			matched = append(matched, types.MatchedTerm{Term: term, Weight: contribution, Location: types.LocationDescription, Count: count})
		}
	}

	// Negative: once per term wherever it appears.
	for _, term := range rs.Negative {
		term, ok := cleanTerm(term)
		if !ok {
			continue
		}
		location := ""
		switch {
		case strings.Contains(title, term):
			location = types.LocationTitle
		case strings.Contains(description, term):
			location = types.LocationDescription
		default:
			continue
		}
		score += NegativeWeight
		matched = append(matched, types.MatchedTerm{Term: term, Weight: NegativeWeight, Location: location, Count: 1})
	}

	if bonus := lengthBonus(record.Description); bonus > 0 {
		score += bonus
		matched = append(matched, types.MatchedTerm{Term: "description_length", Weight: bonus, Location: types.LocationLength})
	}

	return types.RelevanceAnnotation{
		Score:        score,
		Tier:         TierFor(score),
		MatchedTerms: matched,
	}
}

// cleanTerm folds a term the way Normalized does. Blank terms never match.
func cleanTerm(term string) (string, bool) {
	term = strings.ToLower(strings.TrimSpace(term))
	return term, term != ""
}

func lengthBonus(description string) int {
	n := utf8.RuneCountInString(description)
	switch {
	case n > longDescriptionChars:
		return longDescriptionBonus
	case n > mediumDescriptionChars:
		return mediumDescriptionBonus
	}
	return 0
}

// TierFor maps a total score onto a tier.
func TierFor(score int) types.Tier {
	switch {
	case score >= tierAMin:
		return types.TierA
	case score >= tierBMin:
		return types.TierB
	case score >= tierCMin:
		return types.TierC
	case score >= tierDMin:
		return types.TierD
	}
	return types.TierE
}

// Annotate scores every record in place.
func Annotate(records []types.JobRecord, rs *KeywordRuleset) {
	for i := range records {
		ann := Score(&records[i], rs)
		records[i].Relevance = &ann
	}
}
