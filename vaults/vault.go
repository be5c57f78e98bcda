package vaults

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/stream"
)

// Vault is the financial state of one vault at a block.
type Vault struct {
	VaultResolve

	LockedCollateral   decimal.Decimal
	UnlockedCollateral decimal.Decimal
	NormalizedDebt     decimal.Decimal
	Debt               decimal.Decimal

	CollateralPrice        decimal.Decimal
	LockedCollateralUSD    decimal.Decimal
	CollateralizationRatio decimal.Decimal
	LiquidationPrice       decimal.Decimal
	MaxAvailableDebt       decimal.Decimal
	FreeCollateral         decimal.Decimal

	IlkData IlkData
}

// AtRisk reports whether the vault is within the danger threshold of
// liquidation.
func (v Vault) AtRisk() bool {
	return v.Debt.IsPositive() && v.CollateralizationRatio.LessThan(v.IlkData.CollateralizationDangerThreshold)
}

// InstiVault is a charter vault with its institutional terms.
type InstiVault struct {
	Vault

	OriginationFee  decimal.Decimal
	ActiveCollRatio decimal.Decimal
	DebtCeiling     decimal.Decimal
}

func newVault(r VaultResolve, urn chain.Urn, gem decimal.Decimal, ilk IlkData, price decimal.Decimal) Vault {
	debt := urn.NormalizedDebt.Mul(ilk.DebtScalingFactor)
	lockedUSD := urn.Collateral.Mul(price)

	v := Vault{
		VaultResolve:        r,
		LockedCollateral:    urn.Collateral,
		UnlockedCollateral:  gem,
		NormalizedDebt:      urn.NormalizedDebt,
		Debt:                debt,
		CollateralPrice:     price,
		LockedCollateralUSD: lockedUSD,
		IlkData:             ilk,
	}

	v.CollateralizationRatio = div(lockedUSD, debt)
	v.LiquidationPrice = div(debt.Mul(ilk.LiquidationRatio), urn.Collateral)
	v.MaxAvailableDebt = decimal.Max(urn.Collateral.Mul(ilk.MaxDebtPerUnitCollateral).Sub(debt), decimal.Zero)

	if price.IsPositive() {
		backing := debt.Mul(ilk.LiquidationRatio).DivRound(price, precision)
		v.FreeCollateral = decimal.Max(urn.Collateral.Sub(backing), decimal.Zero)
	}

	return v
}

const precision = 18

// div is a/b, or zero when b is zero.
func div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, precision)
}

func (a *AppContext) buildVault(id *big.Int) *stream.Stream[Vault] {
	return stream.SwitchMap(a.VaultResolver(id), func(r VaultResolve) *stream.Stream[Vault] {
		at := chain.IlkUrn{Ilk: r.Ilk, Urn: r.Urn}

		return stream.Combine4(
			a.src.vatUrns(at),
			a.src.vatGem(at),
			a.IlkData(r.Ilk),
			a.src.collateralPrice(r.Token),
			func(urn chain.Urn, gem decimal.Decimal, ilk IlkData, price decimal.Decimal) Vault {
				return newVault(r, urn, gem, ilk, price)
			},
		)
	})
}

// buildInstiVault overlays the charter terms on a vault. Vaults without a
// controller never emit and never read the overlay.
func (a *AppContext) buildInstiVault(id *big.Int) *stream.Stream[InstiVault] {
	return stream.SwitchMap(a.VaultResolver(id), func(r VaultResolve) *stream.Stream[InstiVault] {
		if r.Controller == "" {
			return stream.Never[InstiVault]()
		}

		at := chain.IlkUsr{Ilk: r.Ilk, Usr: r.Controller}

		return stream.Combine4(
			a.Vault(id),
			a.src.charterNib(at),
			a.src.charterPeace(at),
			a.src.charterUline(at),
			func(v Vault, nib, peace, uline decimal.Decimal) InstiVault {
				return InstiVault{Vault: v, OriginationFee: nib, ActiveCollRatio: peace, DebtCeiling: uline}
			},
		)
	})
}
