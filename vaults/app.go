// Package vaults composes the per-block chain reads into the dashboard's
// views. Every view is memoized: one live pipeline per distinct key, shared by
// all subscribers and replaying its latest value.
package vaults

import (
	"fmt"
	"io"
	"math/big"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/memo"
	"github.com/golly-go/vaultstate/observe"
	"github.com/golly-go/vaultstate/stream"
	"github.com/golly-go/vaultstate/uichanges"
)

// AppContext owns the view graph and the UI change bus.
type AppContext struct {
	deps   observe.Deps
	src    sources
	logger *logrus.Entry

	UIChanges *uichanges.Changes

	ilkData          func(string) *stream.Stream[IlkData]
	ilks             func() *stream.Stream[[]string]
	ilkDataList      func() *stream.Stream[[]IlkData]
	collateralTokens func() *stream.Stream[[]string]
	collateralPrices func() *stream.Stream[[]TokenPrice]
	vaultResolver    func(*big.Int) *stream.Stream[VaultResolve]
	vault            func(*big.Int) *stream.Stream[Vault]
	instiVault       func(*big.Int) *stream.Stream[InstiVault]
	balance          func(chain.TokenAccount) *stream.Stream[Balance]
	accountBalances  func(string) *stream.Stream[[]AccountBalance]
	vaults           func(string) *stream.Stream[[]Vault]
	accountData      func(string) *stream.Stream[AccountData]
	ilksWithBalance  func(string) *stream.Stream[[]IlkWithBalance]
	vaultsOverview   func(string) *stream.Stream[VaultsOverview]

	closers []io.Closer
}

type Option func(*AppContext)

// WithCloser hands c to the AppContext; Close closes it.
func WithCloser(c io.Closer) Option {
	return func(a *AppContext) { a.closers = append(a.closers, c) }
}

// WithUIChanges uses an existing bus instead of initializing one.
func WithUIChanges(ui *uichanges.Changes) Option {
	return func(a *AppContext) { a.UIChanges = ui }
}

// Setup builds the view graph once, layer by layer: primitive reads, then
// collateral types, vaults, accounts and finally the composite views. A view
// only refers to views registered before it.
func Setup(d observe.Deps, calls chain.Calls, opts ...Option) *AppContext {
	if d.Logger == nil {
		d.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if d.Cache == nil {
		d.Cache = memo.NewCache(memo.WithLogger(d.Logger))
	}

	a := &AppContext{
		deps:   d,
		logger: d.Logger.WithField("component", "vaults"),
	}
	for _, o := range opts {
		o(a)
	}
	if a.UIChanges == nil {
		a.UIChanges = uichanges.Initialize(d.Logger)
	}

	c := d.Cache

	a.src = newSources(d, calls)

	a.ilkData = memo.Memoize(c, "ilkData", a.buildIlkData, nil)
	a.ilks = memo.Singleton(c, "ilks", a.buildIlks)
	a.ilkDataList = memo.Singleton(c, "ilkDataList", a.buildIlkDataList)
	a.collateralTokens = memo.Singleton(c, "collateralTokens", a.buildCollateralTokens)
	a.collateralPrices = memo.Singleton(c, "collateralPrices", a.buildCollateralPrices)

	a.vaultResolver = memo.Memoize(c, "vaultResolver", a.buildVaultResolver, memo.BigInt)
	a.vault = memo.Memoize(c, "vault", a.buildVault, memo.BigInt)
	a.instiVault = memo.Memoize(c, "instiVault", a.buildInstiVault, memo.BigInt)

	a.balance = observe.Derived(d, "balance", a.src.tokenBalance, balanceOf, chain.TokenAccount.Key)
	a.accountBalances = memo.Memoize(c, "accountBalances", a.buildAccountBalances, nil)
	a.vaults = memo.Memoize(c, "vaults", a.buildVaults, nil)
	a.accountData = memo.Memoize(c, "accountData", a.buildAccountData, nil)

	a.ilksWithBalance = memo.Memoize(c, "ilksWithBalance", a.buildIlksWithBalance, nil)
	a.vaultsOverview = memo.Memoize(c, "vaultsOverview", a.buildVaultsOverview, nil)

	a.logger.WithField("views", len(c.Namespaces())).Debug("view graph ready")

	return a
}

// Close releases every closer handed to Setup and reports all their errors.
func (a *AppContext) Close() error {
	var err error
	for _, c := range a.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// Cache exposes the memo table, for diagnostics.
func (a *AppContext) Cache() *memo.Cache { return a.deps.Cache }

func (a *AppContext) IlkData(ilk string) *stream.Stream[IlkData] { return a.ilkData(ilk) }

func (a *AppContext) Ilks() *stream.Stream[[]string] { return a.ilks() }

func (a *AppContext) IlkDataList() *stream.Stream[[]IlkData] { return a.ilkDataList() }

func (a *AppContext) CollateralTokens() *stream.Stream[[]string] { return a.collateralTokens() }

func (a *AppContext) CollateralPrices() *stream.Stream[[]TokenPrice] { return a.collateralPrices() }

// VaultResolver emits the identity of vault id, or ErrVaultNotFound.
func (a *AppContext) VaultResolver(id *big.Int) *stream.Stream[VaultResolve] {
	if id == nil {
		return stream.Fail[VaultResolve](fmt.Errorf("%w: nil id", ErrVaultNotFound))
	}
	return a.vaultResolver(id)
}

func (a *AppContext) Vault(id *big.Int) *stream.Stream[Vault] {
	if id == nil {
		return stream.Fail[Vault](fmt.Errorf("%w: nil id", ErrVaultNotFound))
	}
	return a.vault(id)
}

// InstiVault emits only for vaults with a controller.
func (a *AppContext) InstiVault(id *big.Int) *stream.Stream[InstiVault] {
	if id == nil {
		return stream.Fail[InstiVault](fmt.Errorf("%w: nil id", ErrVaultNotFound))
	}
	return a.instiVault(id)
}

func (a *AppContext) Balance(token, address string) *stream.Stream[Balance] {
	return a.balance(chain.TokenAccount{Token: token, Account: address})
}

func (a *AppContext) AccountBalances(address string) *stream.Stream[[]AccountBalance] {
	return a.accountBalances(address)
}

// Vaults lists every vault address owns; an account without vaults emits an
// empty list.
func (a *AppContext) Vaults(address string) *stream.Stream[[]Vault] { return a.vaults(address) }

func (a *AppContext) AccountData(address string) *stream.Stream[AccountData] {
	return a.accountData(address)
}

func (a *AppContext) IlksWithBalance(address string) *stream.Stream[[]IlkWithBalance] {
	return a.ilksWithBalance(address)
}

func (a *AppContext) VaultsOverview(address string) *stream.Stream[VaultsOverview] {
	return a.vaultsOverview(address)
}
