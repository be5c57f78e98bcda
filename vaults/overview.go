package vaults

import (
	"github.com/shopspring/decimal"

	"github.com/golly-go/vaultstate/functional"
	"github.com/golly-go/vaultstate/stream"
)

// IlkWithBalance is a collateral type with the account's wallet balance of its
// token. Balance fields are invalid when no account is given.
type IlkWithBalance struct {
	IlkData

	Balance    decimal.NullDecimal
	BalanceUSD decimal.NullDecimal
}

// TokenDeposit is the share of an account's locked collateral held in token.
type TokenDeposit struct {
	Token    string
	ValueUSD decimal.Decimal
	Ratio    decimal.Decimal
}

type VaultSummary struct {
	NumberOfVaults     int
	VaultsAtRisk       int
	TotalCollateralUSD decimal.Decimal
	TotalDebt          decimal.Decimal
	DepositsByToken    []TokenDeposit
}

type VaultsOverview struct {
	Vaults  []Vault
	Ilks    []IlkWithBalance
	Summary VaultSummary
}

func (a *AppContext) buildIlksWithBalance(address string) *stream.Stream[[]IlkWithBalance] {
	if address == "" {
		return stream.Map(a.IlkDataList(), func(ilks []IlkData) []IlkWithBalance {
			return functional.Map(ilks, func(ilk IlkData) IlkWithBalance {
				return IlkWithBalance{IlkData: ilk}
			})
		})
	}

	return stream.Combine2(a.IlkDataList(), a.AccountBalances(address), func(ilks []IlkData, balances []AccountBalance) []IlkWithBalance {
		return functional.Map(ilks, func(ilk IlkData) IlkWithBalance {
			out := IlkWithBalance{IlkData: ilk}
			if b, ok := functional.Find(balances, func(b AccountBalance) bool { return b.Token == ilk.Token }); ok {
				out.Balance = decimal.NewNullDecimal(b.Balance)
				out.BalanceUSD = decimal.NewNullDecimal(b.BalanceUSD)
			}
			return out
		})
	})
}

func (a *AppContext) buildVaultsOverview(address string) *stream.Stream[VaultsOverview] {
	return stream.Combine2(a.Vaults(address), a.IlksWithBalance(address), func(vaults []Vault, ilks []IlkWithBalance) VaultsOverview {
		return VaultsOverview{Vaults: vaults, Ilks: ilks, Summary: summarize(vaults)}
	})
}

func summarize(vaults []Vault) VaultSummary {
	s := VaultSummary{
		NumberOfVaults:     len(vaults),
		VaultsAtRisk:       len(functional.Filter(vaults, Vault.AtRisk)),
		TotalCollateralUSD: sum(vaults, func(v Vault) decimal.Decimal { return v.LockedCollateralUSD }),
		TotalDebt:          sum(vaults, func(v Vault) decimal.Decimal { return v.Debt }),
		DepositsByToken:    []TokenDeposit{},
	}

	byToken := functional.GroupBy(vaults, func(v Vault) string { return v.Token })
	tokens := functional.DeDup(functional.Map(vaults, func(v Vault) string { return v.Token }), func(t string) string { return t })

	for _, token := range tokens {
		value := sum(byToken[token], func(v Vault) decimal.Decimal { return v.LockedCollateralUSD })
		s.DepositsByToken = append(s.DepositsByToken, TokenDeposit{
			Token:    token,
			ValueUSD: value,
			Ratio:    div(value, s.TotalCollateralUSD),
		})
	}

	return s
}

func sum[T any](list []T, fn func(T) decimal.Decimal) decimal.Decimal {
	return functional.Reduce(list, decimal.Zero, func(acc decimal.Decimal, x T) decimal.Decimal {
		return acc.Add(fn(x))
	})
}
