package chain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// IlkUrn addresses an urn within a collateral type.
type IlkUrn struct {
	Ilk string
	Urn string
}

// Key is the canonical cache key, "ilk-urn".
func (p IlkUrn) Key() string { return p.Ilk + "-" + p.Urn }

// IlkUsr addresses a user's position in a registry-managed collateral type.
type IlkUsr struct {
	Ilk string
	Usr string
}

// Key is the canonical cache key, "ilk-usr".
func (p IlkUsr) Key() string { return p.Ilk + "-" + p.Usr }

// TokenAccount addresses a token balance.
type TokenAccount struct {
	Token   string
	Account string
}

// Key is the canonical cache key, "token_account".
func (p TokenAccount) Key() string { return p.Token + "_" + p.Account }

// Urn is the raw collateral and normalized debt locked in an urn.
type Urn struct {
	Collateral     decimal.Decimal
	NormalizedDebt decimal.Decimal
}

// VatIlk holds the vat's accounting for one collateral type.
type VatIlk struct {
	NormalizedIlkDebt        decimal.Decimal
	DebtScalingFactor        decimal.Decimal
	MaxDebtPerUnitCollateral decimal.Decimal
	DebtCeiling              decimal.Decimal
	DebtFloor                decimal.Decimal
}

// SpotIlk holds the price feed settings of one collateral type.
type SpotIlk struct {
	PriceFeedAddress string
	LiquidationRatio decimal.Decimal
}

// JugIlk holds the stability fee settings of one collateral type.
// StabilityFee is already annualized.
type JugIlk struct {
	StabilityFee  decimal.Decimal
	FeeLastLevied time.Time
}

// DogIlk holds the liquidation settings of one collateral type.
type DogIlk struct {
	LiquidationPenalty decimal.Decimal
}

// Cdps lists the standard vaults owned by a proxy.
type Cdps struct {
	IDs  []*big.Int
	Urns []string
	Ilks []string
}
