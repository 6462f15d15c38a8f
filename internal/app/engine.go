package app

import (
	"fmt"

	"github.com/odyssey-erp/invoiceguard/internal/engine"
	"github.com/odyssey-erp/invoiceguard/internal/risk"
)

// EngineConfig maps runtime configuration onto the engine, loading the risk
// policy file when RISK_POLICY_PATH is set.
func EngineConfig(cfg *Config) (engine.Config, error) {
	out := engine.DefaultConfig()
	if cfg == nil {
		return out, nil
	}
	out.Tolerance = cfg.DefaultTolerance
	out.DuplicateThreshold = cfg.DuplicateThreshold
	out.MinFieldConfidence = cfg.MinFieldConfidence
	out.BatchWorkers = cfg.BatchWorkers
	if cfg.RiskPolicyPath != "" {
		policy, err := risk.LoadPolicy(cfg.RiskPolicyPath)
		if err != nil {
			return engine.Config{}, fmt.Errorf("load risk policy %s: %w", cfg.RiskPolicyPath, err)
		}
		out.Policy = policy
	}
	return out, nil
}
