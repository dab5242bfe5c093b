package config

import (
	"fmt"
	"strconv"

	"perpcore/native/common"
	"perpcore/perp/registry"
	"perpcore/perp/value"
)

// RiskKnobs parses p's decimal-string amount fields into the fixed-point
// registry.RiskKnobs the Registry singleton stores.
func (p Policy) RiskKnobs() (registry.RiskKnobs, error) {
	routerCap, err := parseAccountingAmount(p.PerSlabRouterCap)
	if err != nil {
		return registry.RiskKnobs{}, fmt.Errorf("policy.PerSlabRouterCap: %w", err)
	}
	minEquity, err := parseAccountingAmount(p.MinQuotingEquity)
	if err != nil {
		return registry.RiskKnobs{}, fmt.Errorf("policy.MinQuotingEquity: %w", err)
	}
	return registry.RiskKnobs{
		InitialMarginBps:     p.InitialMarginBps,
		MaintenanceMarginBps: p.MaintenanceMarginBps,
		LiquidationBandBps:   p.LiquidationBandBps,
		PreliqBufferBps:      p.PreliqBufferBps,
		PreliqBandBps:        p.PreliqBandBps,
		PerSlabRouterCap:     routerCap,
		MinQuotingEquity:     minEquity,
		OracleToleranceBps:   p.OracleToleranceBps,
	}, nil
}

// Quota converts the configured rate limit into the shape
// perp/router.Engine.SetQuota expects.
func (p Policy) Quota() (common.Quota, error) {
	notional, err := strconv.ParseUint(orZero(p.Quota.MaxNotionalPerMin), 10, 64)
	if err != nil {
		return common.Quota{}, fmt.Errorf("policy.Quota.MaxNotionalPerMin: %w", err)
	}
	return common.Quota{
		MaxRequestsPerMin: p.Quota.MaxRequestsPerMin,
		MaxNHBPerEpoch:    notional,
		EpochSeconds:      p.Quota.EpochSeconds,
	}, nil
}

// PauseSet implements native/common.PauseView over the configured list of
// paused module names (a plain map is enough; governance reload just
// replaces the whole set rather than mutating it in place).
type PauseSet map[string]bool

func (s PauseSet) IsPaused(module string) bool { return s[module] }

// PauseView builds a PauseSet from the configured PausedModules list.
func (p Policy) PauseView() PauseSet {
	set := make(PauseSet, len(p.PausedModules))
	for _, m := range p.PausedModules {
		set[m] = true
	}
	return set
}

func parseAccountingAmount(s string) (value.I128, error) {
	if s == "" {
		return value.ZeroI128(), nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return value.I128{}, err
	}
	return value.FromInt64(v), nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
