package vaults

import (
	"math/big"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/functional"
	"github.com/golly-go/vaultstate/stream"
)

// Dai is the token debt is denominated in.
const Dai = "DAI"

// Balance is an account's holding of one token.
type Balance struct {
	Token   string
	Account string
	Amount  decimal.Decimal
}

// AccountBalance is an account's holding of one collateral token, priced.
type AccountBalance struct {
	Token      string
	Balance    decimal.Decimal
	Price      decimal.Decimal
	BalanceUSD decimal.Decimal
}

// AccountData summarizes a wallet.
type AccountData struct {
	Address        string
	DaiBalance     decimal.Decimal
	NumberOfVaults int
}

func balanceOf(_ chain.Context, p chain.TokenAccount, amount decimal.Decimal) (Balance, error) {
	return Balance{Token: p.Token, Account: p.Account, Amount: amount}, nil
}

func (a *AppContext) buildAccountBalances(address string) *stream.Stream[[]AccountBalance] {
	return stream.SwitchMap(a.CollateralTokens(), func(tokens []string) *stream.Stream[[]AccountBalance] {
		return stream.CombineAll(functional.Map(tokens, func(token string) *stream.Stream[AccountBalance] {
			return stream.Combine2(a.Balance(token, address), a.src.collateralPrice(token), func(b Balance, price decimal.Decimal) AccountBalance {
				return AccountBalance{Token: token, Balance: b.Amount, Price: price, BalanceUSD: b.Amount.Mul(price)}
			})
		}))
	})
}

// buildVaultIDs lists the standard vaults of address's proxy followed by its
// registry vaults in charter then crop-join ilk order.
func (a *AppContext) buildVaultIDs(address string) *stream.Stream[[]*big.Int] {
	type lookup struct {
		proxy string
		ilks  []string
	}

	lookups := stream.Distinct(
		stream.Combine2(a.deps.Context, a.src.proxyAddress(address), func(cc chain.Context, proxy string) lookup {
			return lookup{proxy: proxy, ilks: slices.Concat(cc.CharterIlks, cc.CropJoinIlks)}
		}),
		func(x, y lookup) bool { return x.proxy == y.proxy && slices.Equal(x.ilks, y.ilks) },
	)

	ids := stream.SwitchMap(lookups, func(l lookup) *stream.Stream[[]*big.Int] {
		if l.proxy == "" {
			return stream.Of([]*big.Int{})
		}

		registry := stream.CombineAll(functional.Map(l.ilks, func(ilk string) *stream.Stream[*big.Int] {
			return a.src.cdpRegistryCdps(chain.IlkUsr{Ilk: ilk, Usr: l.proxy})
		}))

		return stream.Combine2(a.src.getCdps(l.proxy), registry, func(std chain.Cdps, reg []*big.Int) []*big.Int {
			all := slices.Concat(std.IDs, functional.Filter(reg, func(id *big.Int) bool { return id != nil }))
			return functional.DeDup(all, (*big.Int).String)
		})
	})

	return stream.Distinct(ids, func(x, y []*big.Int) bool {
		return slices.EqualFunc(x, y, func(p, q *big.Int) bool { return p.Cmp(q) == 0 })
	})
}

func (a *AppContext) buildVaults(address string) *stream.Stream[[]Vault] {
	return stream.SwitchMap(a.buildVaultIDs(address), func(ids []*big.Int) *stream.Stream[[]Vault] {
		return stream.CombineAll(functional.Map(ids, a.Vault))
	})
}

func (a *AppContext) buildAccountData(address string) *stream.Stream[AccountData] {
	return stream.Combine2(a.Balance(Dai, address), a.Vaults(address), func(dai Balance, vaults []Vault) AccountData {
		return AccountData{Address: address, DaiBalance: dai.Amount, NumberOfVaults: len(vaults)}
	})
}
