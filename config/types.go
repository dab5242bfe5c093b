package config

// Policy bundles the governance-tunable risk knobs and operational limits a
// deployment applies on top of the Router program (spec.md §3's Registry
// RiskKnobs, plus the SPEC_FULL.md pause/quota ambient additions). Amounts
// are decimal strings at accounting-unit scale (value.AccountingScale) so
// the TOML file holds human-typed numbers rather than raw fixed-point
// integers.
type Policy struct {
	InitialMarginBps     uint64 `toml:"InitialMarginBps"`
	MaintenanceMarginBps uint64 `toml:"MaintenanceMarginBps"`
	LiquidationBandBps   uint64 `toml:"LiquidationBandBps"`
	PreliqBufferBps      uint64 `toml:"PreliqBufferBps"`
	PreliqBandBps        uint64 `toml:"PreliqBandBps"`
	OracleToleranceBps   uint64 `toml:"OracleToleranceBps"`

	PerSlabRouterCap string `toml:"PerSlabRouterCap"`
	MinQuotingEquity string `toml:"MinQuotingEquity"`

	AllowAutoRegister bool `toml:"AllowAutoRegister"`

	PausedModules []string `toml:"PausedModules"`

	Quota QuotaPolicy `toml:"Quota"`
}

// QuotaPolicy configures the per-caller rate limit applied to Execute
// (native/common/quota.go).
type QuotaPolicy struct {
	MaxRequestsPerMin uint32 `toml:"MaxRequestsPerMin"`
	MaxNotionalPerMin string `toml:"MaxNotionalPerMin"`
	EpochSeconds      uint32 `toml:"EpochSeconds"`
}
