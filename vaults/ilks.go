package vaults

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/functional"
	"github.com/golly-go/vaultstate/stream"
)

var (
	dangerOffset  = decimal.RequireFromString("0.2")
	warningOffset = decimal.RequireFromString("0.5")
)

// IlkData is everything known about one collateral type at a block.
type IlkData struct {
	Ilk   string
	Token string

	chain.VatIlk
	chain.SpotIlk
	chain.JugIlk
	chain.DogIlk

	// IlkDebt is the total debt drawn against the collateral type.
	IlkDebt          decimal.Decimal
	IlkDebtAvailable decimal.Decimal

	CollateralizationDangerThreshold  decimal.Decimal
	CollateralizationWarningThreshold decimal.Decimal
}

func newIlkData(cc chain.Context, ilk string, vat chain.VatIlk, spot chain.SpotIlk, jug chain.JugIlk, dog chain.DogIlk) IlkData {
	debt := vat.NormalizedIlkDebt.Mul(vat.DebtScalingFactor)

	return IlkData{
		Ilk:                               ilk,
		Token:                             cc.IlkToToken(ilk),
		VatIlk:                            vat,
		SpotIlk:                           spot,
		JugIlk:                            jug,
		DogIlk:                            dog,
		IlkDebt:                           debt,
		IlkDebtAvailable:                  decimal.Max(vat.DebtCeiling.Sub(debt), decimal.Zero),
		CollateralizationDangerThreshold:  spot.LiquidationRatio.Add(dangerOffset),
		CollateralizationWarningThreshold: spot.LiquidationRatio.Add(warningOffset),
	}
}

// TokenPrice is a collateral token's price in USD.
type TokenPrice struct {
	Token string
	Price decimal.Decimal
}

func (a *AppContext) buildIlkData(ilk string) *stream.Stream[IlkData] {
	return stream.Combine5(
		a.deps.Context,
		a.src.vatIlk(ilk),
		a.src.spotIlk(ilk),
		a.src.jugIlk(ilk),
		a.src.dogIlk(ilk),
		func(cc chain.Context, vat chain.VatIlk, spot chain.SpotIlk, jug chain.JugIlk, dog chain.DogIlk) IlkData {
			return newIlkData(cc, ilk, vat, spot, jug, dog)
		},
	)
}

func (a *AppContext) buildIlks() *stream.Stream[[]string] {
	ilks := stream.Map(a.deps.Context, func(cc chain.Context) []string {
		return slices.Clone(cc.Ilks)
	})
	return stream.Distinct(ilks, slices.Equal[[]string, string])
}

func (a *AppContext) buildIlkDataList() *stream.Stream[[]IlkData] {
	return stream.SwitchMap(a.Ilks(), func(ilks []string) *stream.Stream[[]IlkData] {
		return stream.CombineAll(functional.Map(ilks, a.IlkData))
	})
}

func (a *AppContext) buildCollateralTokens() *stream.Stream[[]string] {
	tokens := stream.Combine2(a.deps.Context, a.Ilks(), func(cc chain.Context, ilks []string) []string {
		return functional.DeDup(functional.Map(ilks, cc.IlkToToken), func(t string) string { return t })
	})
	return stream.Distinct(tokens, slices.Equal[[]string, string])
}

func (a *AppContext) buildCollateralPrices() *stream.Stream[[]TokenPrice] {
	return stream.SwitchMap(a.CollateralTokens(), func(tokens []string) *stream.Stream[[]TokenPrice] {
		return stream.CombineAll(functional.Map(tokens, a.tokenPrice))
	})
}

func (a *AppContext) tokenPrice(token string) *stream.Stream[TokenPrice] {
	return stream.Map(a.src.collateralPrice(token), func(p decimal.Decimal) TokenPrice {
		return TokenPrice{Token: token, Price: p}
	})
}
