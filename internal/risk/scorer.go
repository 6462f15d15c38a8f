// Package risk turns indicator signals into verdicts. Two independent scales
// exist: the weighted composite in [0,1] and the additive point score out of
// 100. They are never combined.
package risk

import (
	"math"
	"sort"

	"github.com/odyssey-erp/invoiceguard/internal/indicators"
)

// Tier classifies a composite score.
type Tier string

const (
	TierNone     Tier = "none"
	TierLow      Tier = "low"
	TierMedium   Tier = "medium"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

// TierFor maps a composite score to its tier.
func TierFor(score float64) Tier {
	switch {
	case score >= 0.7:
		return TierCritical
	case score >= 0.5:
		return TierHigh
	case score >= 0.3:
		return TierMedium
	case score >= 0.1:
		return TierLow
	default:
		return TierNone
	}
}

// Indicator is a fired signal attributed in a verdict.
type Indicator struct {
	Type         indicators.Type     `json:"type"`
	Severity     indicators.Severity `json:"severity"`
	Description  string              `json:"description"`
	Confidence   float64             `json:"confidence"`
	Contribution float64             `json:"contribution"`
}

// Recommendation is a follow-up step for the AP team.
type Recommendation struct {
	Priority string `json:"priority"`
	Action   string `json:"action"`
}

// Verdict is the weighted composite outcome.
type Verdict struct {
	Score           float64          `json:"anomalyScore"`
	Tier            Tier             `json:"riskLevel"`
	Indicators      []Indicator      `json:"indicators"`
	Action          Action           `json:"action"`
	Recommendations []Recommendation `json:"recommendations"`
}

var typeOrder = map[indicators.Type]int{
	indicators.TypeDuplicate:         0,
	indicators.TypePriceAnomaly:      1,
	indicators.TypeRushPayment:       2,
	indicators.TypeRoundAmount:       3,
	indicators.TypeNewVendor:         4,
	indicators.TypePatternAnomaly:    5,
	indicators.TypeSuspiciousAmount:  6,
	indicators.TypeSuspiciousVendor:  7,
	indicators.TypeMissingFields:     8,
	indicators.TypeBankAccountChange: 9,
	indicators.TypeUnusualFormat:     10,
}

// Scorer computes the weighted composite verdict.
type Scorer struct {
	policy Policy
}

// NewScorer validates the policy and builds a scorer.
func NewScorer(policy Policy) (*Scorer, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{policy: policy}, nil
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() Policy {
	return s.policy
}

// Score aggregates fired signals. Signals of types without a weight are
// attributed with zero contribution. duplicateConfirmed forces a reject.
func (s *Scorer) Score(signals []indicators.Signal, duplicateConfirmed bool) Verdict {
	var total float64
	attributed := make([]Indicator, 0, len(signals))
	fired := map[indicators.Type]bool{}
	for _, sig := range signals {
		if !sig.Fired {
			continue
		}
		contribution := s.policy.Weights[sig.Type] * sig.Confidence
		total += contribution
		fired[sig.Type] = true
		attributed = append(attributed, Indicator{
			Type:         sig.Type,
			Severity:     sig.Severity,
			Description:  sig.Description,
			Confidence:   sig.Confidence,
			Contribution: round4(contribution),
		})
	}
	sort.SliceStable(attributed, func(i, j int) bool {
		a, b := attributed[i], attributed[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return typeOrder[a.Type] < typeOrder[b.Type]
	})

	score := round4(math.Max(0, math.Min(1, total)))
	tier := TierFor(score)
	return Verdict{
		Score:           score,
		Tier:            tier,
		Indicators:      attributed,
		Action:          s.action(tier, duplicateConfirmed),
		Recommendations: recommend(tier, fired, duplicateConfirmed),
	}
}

func (s *Scorer) action(tier Tier, duplicateConfirmed bool) Action {
	switch {
	case duplicateConfirmed:
		return ActionReject
	case tier == TierCritical:
		return s.policy.CriticalAction
	case tier == TierHigh:
		return s.policy.HighAction
	default:
		return ActionAutoApprove
	}
}

func recommend(tier Tier, fired map[indicators.Type]bool, duplicateConfirmed bool) []Recommendation {
	var out []Recommendation
	switch tier {
	case TierCritical:
		out = append(out, Recommendation{Priority: "critical", Action: "Hold payment and escalate to fraud team immediately"})
	case TierHigh:
		out = append(out, Recommendation{Priority: "high", Action: "Require additional approval before processing"})
	}
	if duplicateConfirmed || fired[indicators.TypeDuplicate] {
		out = append(out, Recommendation{Priority: "high", Action: "Verify this is not a duplicate submission before payment"})
	}
	if fired[indicators.TypePriceAnomaly] {
		out = append(out, Recommendation{Priority: "medium", Action: "Request itemized breakdown and compare with contract rates"})
	}
	if fired[indicators.TypeNewVendor] {
		out = append(out, Recommendation{Priority: "medium", Action: "Verify vendor credentials and banking information"})
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
