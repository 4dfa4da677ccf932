package model

import "time"

// MatchMethod names the strategy that produced a match decision.
type MatchMethod string

const (
	MatchExactKey   MatchMethod = "exact_key"
	MatchExactEmail MatchMethod = "exact_email"
	MatchExactPhone MatchMethod = "exact_phone"
	MatchFuzzyEmail MatchMethod = "fuzzy_email"
	MatchExactName  MatchMethod = "exact_name"
	MatchFuzzyName  MatchMethod = "fuzzy_name"
	MatchNone       MatchMethod = "none"
)

// MatchDecision records how (or that) a candidate was linked to a canonical
// order key. Append-only: decisions are the audit trail and are never
// mutated or deleted.
type MatchDecision struct {
	ID              string      `json:"id"`
	CandidateSource Source      `json:"candidate_source"`
	CandidateKey    string      `json:"candidate_key"` // natural key on the candidate side
	MatchedKey      string      `json:"matched_key"`   // canonical order key, empty when none
	Method          MatchMethod `json:"method"`
	Confidence      float64     `json:"confidence"`
	Tier            int         `json:"tier"` // 0 = exact key, 1..n = waterfall tier
	BatchID         string      `json:"batch_id"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Matched reports whether the decision linked the candidate to an order.
func (d MatchDecision) Matched() bool {
	return d.Method != MatchNone && d.MatchedKey != ""
}

// ReviewItem is an unmatched candidate queued for manual review.
type ReviewItem struct {
	ID         string    `json:"id"`
	Source     Source    `json:"source"`
	NaturalKey string    `json:"natural_key"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Name       string    `json:"name,omitempty"`
	Reason     string    `json:"reason"`
	BatchID    string    `json:"batch_id"`
	CreatedAt  time.Time `json:"created_at"`
}
