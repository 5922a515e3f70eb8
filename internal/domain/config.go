package domain

// Data mode constants.
const (
	ModeReplay    = "replay"
	ModeSynthetic = "synthetic"
)

// Default rate and policy parameters.
const (
	DefaultCollateralFactor = 0.80
	DefaultTargetHealth     = 1.15
	DefaultMinHealth        = 1.05
	DefaultMaxHealth        = 1.50
	DefaultBorrowAPR        = 0.05
	DefaultSupplyAPY        = 0.03
	DefaultVaultAPY         = 0.08
	DefaultDepositValue     = 1000.0
	DefaultBasePrice        = 100.0
	DefaultTotalDays        = 365
)

// SimulationConfig is the full configuration surface recognized by the
// engine. A zero value is not usable directly; call Normalize to fill
// defaults and restore threshold ordering.
type SimulationConfig struct {
	// Assets.
	Asset     string // collateral asset symbol, e.g. "ETH"
	DebtAsset string // borrowed asset symbol, e.g. "USDC"

	// Position sizing.
	DepositValue     float64
	CollateralFactor float64 // LTV, fraction of collateral value borrowable

	// Health threshold overrides. Nil means resolve dynamically.
	TargetHealth *float64
	MinHealth    *float64
	MaxHealth    *float64

	// Rates (annual, as fractions).
	BorrowAPR float64
	SupplyAPY float64
	VaultAPY  float64 // also the Traditional borrowed-funds yield

	// Price path selection.
	Mode      string  // ModeReplay | ModeSynthetic
	BasePrice float64 // synthetic base price / replay override when > 0
	TotalDays int

	// Replay mode.
	YearStart int
	YearEnd   int

	// Synthetic mode.
	TargetChangePct float64 // total percent change over the horizon
	VolatilityTier  string  // "low" | "medium" | "high"
	Shape           string  // "linear" | "crash" | "vshape" | "bull"
}

// Normalize fills zero fields with defaults and enforces the threshold
// ordering invariant at the point of mutation: dependent thresholds are
// shifted rather than rejected, so simulators never observe an invalid
// tuple.
func (c *SimulationConfig) Normalize() {
	if c.Asset == "" {
		c.Asset = "ETH"
	}
	if c.DebtAsset == "" {
		c.DebtAsset = "USDC"
	}
	if c.DepositValue <= 0 {
		c.DepositValue = DefaultDepositValue
	}
	if c.CollateralFactor <= 0 || c.CollateralFactor >= 1 {
		c.CollateralFactor = DefaultCollateralFactor
	}
	if c.BorrowAPR <= 0 {
		c.BorrowAPR = DefaultBorrowAPR
	}
	if c.SupplyAPY <= 0 {
		c.SupplyAPY = DefaultSupplyAPY
	}
	if c.VaultAPY <= 0 {
		c.VaultAPY = DefaultVaultAPY
	}
	if c.Mode == "" {
		c.Mode = ModeSynthetic
	}
	// In replay mode a zero BasePrice means "use the recorded series
	// as-is"; only synthetic paths need a concrete base.
	if c.BasePrice <= 0 && c.Mode == ModeSynthetic {
		c.BasePrice = DefaultBasePrice
	}
	if c.TotalDays <= 0 {
		c.TotalDays = DefaultTotalDays
	}
	if c.VolatilityTier == "" {
		c.VolatilityTier = "medium"
	}
	if c.Shape == "" {
		c.Shape = "linear"
	}

	c.normalizeThresholds()
}

// normalizeThresholds shifts dependent override fields so that any
// explicitly set subset still yields 1.0 < min < target <= max.
func (c *SimulationConfig) normalizeThresholds() {
	if c.TargetHealth != nil && *c.TargetHealth <= LiquidationThreshold+0.01 {
		v := LiquidationThreshold + 0.01
		*c.TargetHealth = v
	}
	if c.MinHealth != nil {
		if *c.MinHealth <= LiquidationThreshold {
			*c.MinHealth = LiquidationThreshold + 0.01
		}
		if c.TargetHealth != nil && *c.MinHealth >= *c.TargetHealth {
			v := *c.TargetHealth - 0.05
			if v <= LiquidationThreshold {
				v = (*c.TargetHealth + LiquidationThreshold) / 2
			}
			*c.MinHealth = v
		}
	}
	if c.MaxHealth != nil && c.TargetHealth != nil && *c.MaxHealth <= *c.TargetHealth {
		v := *c.TargetHealth + 0.25
		*c.MaxHealth = v
	}
}

// ThresholdOverrides returns the explicit per-field overrides carried
// by the config, for the resolver's top precedence level.
func (c *SimulationConfig) ThresholdOverrides() ThresholdOverrides {
	return ThresholdOverrides{
		MinHealth:    c.MinHealth,
		TargetHealth: c.TargetHealth,
		MaxHealth:    c.MaxHealth,
	}
}

// ThresholdOverrides carries optional user-set threshold fields. A nil
// field means "no override".
type ThresholdOverrides struct {
	MinHealth    *float64
	TargetHealth *float64
	MaxHealth    *float64
}
