package risk

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/invoiceguard/internal/indicators"
)

// ErrInvalidPolicy reports a policy that cannot be used for scoring.
var ErrInvalidPolicy = errors.New("risk: invalid policy")

// Action is the recommended disposition of an invoice.
type Action string

const (
	ActionAutoApprove  Action = "auto-approve"
	ActionManualReview Action = "manual-review"
	ActionReject       Action = "reject"
)

// Weights maps weighted-scale indicator types to their fixed contribution.
type Weights map[indicators.Type]float64

// Policy is the scoring configuration shared by both scales.
type Policy struct {
	Weights        Weights                 `yaml:"weights"`
	CriticalAction Action                  `yaml:"critical_action"`
	HighAction     Action                  `yaml:"high_action"`
	Points         map[indicators.Type]int `yaml:"points"`
	PointReviewAt  int                     `yaml:"point_review_at"`
}

// DefaultPolicy returns the production weights and point values.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			indicators.TypeDuplicate:      0.35,
			indicators.TypePriceAnomaly:   0.25,
			indicators.TypeRushPayment:    0.15,
			indicators.TypeRoundAmount:    0.05,
			indicators.TypeNewVendor:      0.10,
			indicators.TypePatternAnomaly: 0.10,
		},
		CriticalAction: ActionManualReview,
		HighAction:     ActionManualReview,
		Points: map[indicators.Type]int{
			indicators.TypeSuspiciousAmount:  25,
			indicators.TypeRoundAmount:       10,
			indicators.TypeSuspiciousVendor:  30,
			indicators.TypeMissingFields:     15,
			indicators.TypeBankAccountChange: 20,
			indicators.TypeUnusualFormat:     10,
		},
		PointReviewAt: 25,
	}
}

// Validate checks that weights sum to 1 and actions are known.
func (p Policy) Validate() error {
	if len(p.Weights) == 0 {
		return fmt.Errorf("no weights configured: %w", ErrInvalidPolicy)
	}
	var sum float64
	for t, w := range p.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %s is negative: %w", t, ErrInvalidPolicy)
		}
		sum += w
	}
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights sum to %.4f, want 1: %w", sum, ErrInvalidPolicy)
	}
	for _, a := range []Action{p.CriticalAction, p.HighAction} {
		switch a {
		case ActionManualReview, ActionReject:
		default:
			return fmt.Errorf("unsupported escalation action %q: %w", a, ErrInvalidPolicy)
		}
	}
	for t, pts := range p.Points {
		if pts < 0 {
			return fmt.Errorf("points for %s are negative: %w", t, ErrInvalidPolicy)
		}
	}
	return nil
}

// LoadPolicy reads a YAML policy file. Keys absent from the file keep their
// default values.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy document over the defaults.
func ParsePolicy(data []byte) (Policy, error) {
	var doc Policy
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	policy := DefaultPolicy()
	if len(doc.Weights) > 0 {
		policy.Weights = doc.Weights
	}
	if doc.CriticalAction != "" {
		policy.CriticalAction = doc.CriticalAction
	}
	if doc.HighAction != "" {
		policy.HighAction = doc.HighAction
	}
	for t, pts := range doc.Points {
		policy.Points[t] = pts
	}
	if doc.PointReviewAt > 0 {
		policy.PointReviewAt = doc.PointReviewAt
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}
