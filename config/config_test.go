package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultWithGeneratedKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.ValidatorKey)
	require.Equal(t, ":6001", cfg.ListenAddress)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestLoadPreservesExistingValidatorKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	first, err := Load(path)
	require.NoError(t, err)

	second, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, first.ValidatorKey, second.ValidatorKey)
}

func TestValidatePolicyRejectsInvertedMargins(t *testing.T) {
	p := Policy{InitialMarginBps: 100, MaintenanceMarginBps: 500, OracleToleranceBps: 50}
	require.Error(t, ValidatePolicy(p))
}

func TestValidatePolicyRejectsInvertedBands(t *testing.T) {
	p := Policy{InitialMarginBps: 1000, MaintenanceMarginBps: 500, LiquidationBandBps: 100, PreliqBandBps: 200, OracleToleranceBps: 50}
	require.Error(t, ValidatePolicy(p))
}

func TestValidatePolicyAcceptsWellOrderedKnobs(t *testing.T) {
	p := Policy{
		InitialMarginBps:     1000,
		MaintenanceMarginBps: 500,
		LiquidationBandBps:   2000,
		PreliqBandBps:        1500,
		OracleToleranceBps:   50,
	}
	require.NoError(t, ValidatePolicy(p))
}

func TestPolicyRiskKnobsParsesAmounts(t *testing.T) {
	p := Policy{PerSlabRouterCap: "5000000", MinQuotingEquity: "1000000"}
	knobs, err := p.RiskKnobs()
	require.NoError(t, err)
	routerCap, ok := knobs.PerSlabRouterCap.Int64()
	require.True(t, ok)
	require.Equal(t, int64(5_000_000), routerCap)
}

func TestPolicyQuotaParsesNotionalCap(t *testing.T) {
	p := Policy{Quota: QuotaPolicy{MaxRequestsPerMin: 10, MaxNotionalPerMin: "250000", EpochSeconds: 60}}
	q, err := p.Quota()
	require.NoError(t, err)
	require.Equal(t, uint64(250_000), q.MaxNHBPerEpoch)
}

func TestPolicyPauseViewReflectsConfiguredModules(t *testing.T) {
	p := Policy{PausedModules: []string{"router.execute"}}
	view := p.PauseView()
	require.True(t, view.IsPaused("router.execute"))
	require.False(t, view.IsPaused("router.deposit"))
}
