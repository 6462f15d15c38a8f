package risk

import "github.com/odyssey-erp/invoiceguard/internal/indicators"

// Level classifies a point score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Flag is a fired point-scale check.
type Flag struct {
	Type     indicators.Type     `json:"type"`
	Severity indicators.Severity `json:"severity"`
	Detail   string              `json:"detail"`
	Points   int                 `json:"points"`
}

// PointVerdict is the additive 0-100 outcome.
type PointVerdict struct {
	Score                int    `json:"fraudScore"`
	Level                Level  `json:"riskLevel"`
	Flags                []Flag `json:"flags"`
	Action               Action `json:"recommendation"`
	RequiresVerification bool   `json:"requiresVerification"`
}

// PointScorer computes the additive fraud score.
type PointScorer struct {
	points   map[indicators.Type]int
	reviewAt int
}

// NewPointScorer builds a point scorer from the policy's point table.
func NewPointScorer(policy Policy) *PointScorer {
	reviewAt := policy.PointReviewAt
	if reviewAt <= 0 {
		reviewAt = DefaultPolicy().PointReviewAt
	}
	return &PointScorer{points: policy.Points, reviewAt: reviewAt}
}

// Score sums points for fired signals. Checks reporting a count in
// Details["count"] earn their points once per occurrence.
func (p *PointScorer) Score(signals []indicators.Signal) PointVerdict {
	total := 0
	flags := make([]Flag, 0, len(signals))
	for _, sig := range signals {
		if !sig.Fired {
			continue
		}
		pts := p.points[sig.Type]
		if n, ok := sig.Details["count"].(int); ok && n > 1 {
			pts *= n
		}
		total += pts
		flags = append(flags, Flag{Type: sig.Type, Severity: sig.Severity, Detail: sig.Description, Points: pts})
	}
	if total > 100 {
		total = 100
	}

	level := LevelLow
	switch {
	case total >= 50:
		level = LevelHigh
	case total >= 25:
		level = LevelMedium
	}
	action := ActionAutoApprove
	if total >= p.reviewAt {
		action = ActionManualReview
	}
	return PointVerdict{
		Score:                total,
		Level:                level,
		Flags:                flags,
		Action:               action,
		RequiresVerification: total >= p.reviewAt,
	}
}
