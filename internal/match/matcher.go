// Package match links candidate records to canonical orders. The primary
// strategy is an exact canonical-key match; when no key is available the
// matcher walks a configurable waterfall of identity tiers over an immutable
// corpus snapshot. Matching is read-only: committing a match is the store's
// job, and every decision (including misses) is appended to the audit trail
// by the caller.
package match

import (
	"strings"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// Entry is one corpus order the matcher can link against. All identity
// fields are pre-normalized; Seq is the corpus insertion order and breaks
// ties deterministically.
type Entry struct {
	OrderKey string
	Email    string
	Phone    string
	Name     string
	AltName  string // second name on the order (shipping vs billing)
	Seq      int
}

// Snapshot is an immutable view of the corpus taken before a batch runs.
// Matching against a snapshot keeps results reproducible: decisions made
// mid-batch never shift the candidate set under later rows.
type Snapshot struct {
	entries []Entry
	byKey   map[string]int
}

// NewSnapshot builds a snapshot preserving the given insertion order.
func NewSnapshot(entries []Entry) *Snapshot {
	byKey := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.OrderKey != "" {
			if _, dup := byKey[e.OrderKey]; !dup {
				byKey[e.OrderKey] = i
			}
		}
	}
	return &Snapshot{entries: entries, byKey: byKey}
}

// Len returns the corpus size.
func (s *Snapshot) Len() int { return len(s.entries) }

// Candidate is a record to be linked: a shipment, payment, or attendance
// row whose identity fields are already normalized (empty when
// normalization failed).
type Candidate struct {
	Source     model.Source
	NaturalKey string // the candidate's own key, for the audit trail
	OrderKey   string // canonical key when the source carries one
	Email      string
	Phone      string
	Name       string
}

// Matcher evaluates candidates against a snapshot using the configured
// waterfall.
type Matcher struct {
	cfg *Config
}

// New creates a Matcher. A nil config uses the default waterfall.
func New(cfg *Config) *Matcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Matcher{cfg: cfg}
}

// Match links one candidate. The returned decision always has a method:
// exact_key (tier 0), a waterfall method (tier 1..n), or none. The caller
// appends it to the audit trail and, for method none, queues the candidate
// for manual review.
func (m *Matcher) Match(c Candidate, snap *Snapshot) model.MatchDecision {
	decision := model.MatchDecision{
		CandidateSource: c.Source,
		CandidateKey:    c.NaturalKey,
		Method:          model.MatchNone,
	}

	// Tier 0: exact canonical key.
	if c.OrderKey != "" {
		if idx, ok := snap.byKey[c.OrderKey]; ok {
			decision.MatchedKey = snap.entries[idx].OrderKey
			decision.Method = model.MatchExactKey
			decision.Confidence = 1.0
			return decision
		}
	}

	for tierNo, tier := range m.cfg.Tiers {
		key, score := m.evalTier(tier, c, snap)
		if key == "" {
			continue
		}
		decision.MatchedKey = key
		decision.Method = tier.Method
		decision.Confidence = score
		decision.Tier = tierNo + 1
		return decision
	}

	zap.L().Debug("no match for candidate",
		zap.String("source", string(c.Source)),
		zap.String("key", c.NaturalKey),
	)
	return decision
}

// evalTier scans the whole snapshot at one tier and returns the winning
// order key and confidence, or ("", 0). Ties on score go to the earliest
// inserted corpus entry: only a strictly better score displaces the winner.
func (m *Matcher) evalTier(tier TierConfig, c Candidate, snap *Snapshot) (string, float64) {
	bestKey := ""
	bestScore := 0.0

	for _, e := range snap.entries {
		var score float64
		switch tier.Method {
		case model.MatchExactEmail:
			if c.Email != "" && c.Email == e.Email {
				score = tier.Confidence
			}
		case model.MatchExactPhone:
			if c.Phone != "" && c.Phone == e.Phone {
				score = tier.Confidence
			}
		case model.MatchFuzzyEmail:
			if sim := emailSimilarity(c.Email, e.Email); sim >= tier.Threshold {
				score = sim
			}
		case model.MatchExactName:
			if c.Name != "" && (c.Name == e.Name || c.Name == e.AltName) {
				score = tier.Confidence
			}
		case model.MatchFuzzyName:
			sim := nameSimilarity(c.Name, e.Name)
			if alt := nameSimilarity(c.Name, e.AltName); alt > sim {
				sim = alt
			}
			if sim >= tier.Threshold {
				score = sim
			}
		}
		if score > bestScore {
			bestKey = e.OrderKey
			bestScore = score
		}
	}
	return bestKey, bestScore
}

// emailSimilarity compares the local parts (before "@") of two normalized
// emails. Provider domains are too uniform to carry signal.
func emailSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	localA, _, _ := strings.Cut(a, "@")
	localB, _, _ := strings.Cut(b, "@")
	return levenshtein.Similarity(localA, localB, nil)
}

// nameSimilarity compares two normalized names, also trying the reversed
// word order so "kumar ravi" still matches "ravi kumar".
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	sim := levenshtein.Similarity(a, b, nil)

	parts := strings.Fields(a)
	if len(parts) >= 2 {
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		if rev := levenshtein.Similarity(strings.Join(parts, " "), b, nil); rev > sim {
			sim = rev
		}
	}
	return sim
}
