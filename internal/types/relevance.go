package types

// Tier is an ordinal relevance class, A highest.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
	TierE Tier = "E"
)

// Rank orders tiers so that a higher rank is more relevant. Unknown tiers rank 0.
func (t Tier) Rank() int {
	switch t {
	case TierA:
		return 5
	case TierB:
		return 4
	case TierC:
		return 3
	case TierD:
		return 2
	case TierE:
		return 1
	}
	return 0
}

// Match locations.
const (
	LocationTitle       = "title"
	LocationDescription = "description"
	LocationLength      = "length"
)

// MatchedTerm records one contribution to a relevance score.
type MatchedTerm struct {
	Term     string `json:"term"`
	Weight   int    `json:"weight"`
	Location string `json:"location"`
	Count    int    `json:"count,omitempty"`
}

// RelevanceAnnotation is the scorer's verdict on a record.
type RelevanceAnnotation struct {
	Score        int           `json:"score"`
	Tier         Tier          `json:"tier"`
	MatchedTerms []MatchedTerm `json:"matched_terms"`
}
