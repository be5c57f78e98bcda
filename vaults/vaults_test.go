package vaults

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/golly-go/vaultstate/blocks"
	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/memo"
	"github.com/golly-go/vaultstate/observe"
	"github.com/golly-go/vaultstate/stream"
)

type fixture struct {
	app     *AppContext
	chain   *chain.Memory
	blocks  *blocks.Manual
	context *stream.Subject[chain.Context]
	hook    *test.Hook
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	logger, hook := test.NewNullLogger()
	b := blocks.NewManual()
	b.Push(1)

	cc := stream.NewSubject[chain.Context]()
	cc.Next(chain.DemoContext("testnet"))

	m := chain.NewDemo()
	app := Setup(observe.Deps{
		Cache:    memo.NewCache(),
		Blocks:   b.Stream(),
		Context:  cc.Stream(),
		Executor: observe.Inline,
		Logger:   logrus.NewEntry(logger),
	}, m, opts...)

	return &fixture{app: app, chain: m, blocks: b, context: cc, hook: hook}
}

type collector[T any] struct {
	mu     sync.Mutex
	values []T
	errs   []error
}

func collect[T any](t *testing.T, s *stream.Stream[T]) *collector[T] {
	t.Helper()

	c := &collector[T]{}
	sub := s.Subscribe(c)
	t.Cleanup(sub.Unsubscribe)
	return c
}

func (c *collector[T]) OnNext(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}

func (c *collector[T]) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *collector[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

func (c *collector[T]) Last(t *testing.T) T {
	t.Helper()

	vs := c.Values()
	require.NotEmpty(t, vs)
	return vs[len(vs)-1]
}

func (c *collector[T]) Errors() []error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]error(nil), c.errs...)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func id(n int64) *big.Int { return big.NewInt(n) }

func TestVaultResolver(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want VaultResolve
	}{
		{
			name: "standard",
			id:   1001,
			want: VaultResolve{Type: Standard, Ilk: "ETH-A", Token: "ETH", Urn: "0xurn1001", Owner: chain.DemoOwner, Proxy: chain.DemoProxy},
		},
		{
			name: "charter",
			id:   2001,
			want: VaultResolve{Type: Charter, Ilk: chain.DemoCharterIlk, Token: "ETH", Urn: chain.DemoCharterProxy, Owner: chain.DemoOwner, Proxy: chain.DemoProxy, Controller: chain.DemoProxy},
		},
		{
			name: "crop join",
			id:   3001,
			want: VaultResolve{Type: CropJoin, Ilk: chain.DemoCropJoinIlk, Token: "CRVV1ETHSTETH", Urn: chain.DemoCropperProxy, Owner: chain.DemoOwner, Proxy: chain.DemoProxy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			got := collect(t, f.app.VaultResolver(id(tt.id))).Last(t)

			tt.want.ID = id(tt.id)
			assert.True(t, tt.want.equal(got), "got %+v", got)
		})
	}
}

func TestVault_Standard(t *testing.T) {
	f := newFixture(t)

	c := collect(t, f.app.Vault(id(1001)))
	require.Len(t, c.Values(), 1)
	v := c.Last(t)

	assert.Equal(t, chain.DemoOwner, v.Owner)
	assert.Equal(t, "ETH", v.Token)
	assertDecimal(t, "10", v.LockedCollateral)
	assertDecimal(t, "0.5", v.UnlockedCollateral)
	assertDecimal(t, "5250", v.Debt)
	assertDecimal(t, "2000", v.CollateralPrice)
	assertDecimal(t, "20000", v.LockedCollateralUSD)
	assertDecimal(t, "3.8095", v.CollateralizationRatio.Round(4))
	assertDecimal(t, "761.25", v.LiquidationPrice)
	assert.False(t, v.AtRisk())
	assert.Equal(t, "ETH-A", v.IlkData.Ilk)
}

func TestVault_NotFound(t *testing.T) {
	f := newFixture(t)

	c := collect(t, f.app.Vault(id(9999)))

	assert.Empty(t, c.Values())
	require.Len(t, c.Errors(), 1)
	assert.ErrorIs(t, c.Errors()[0], ErrVaultNotFound)

	assert.ErrorIs(t, collect(t, f.app.Vault(nil)).Errors()[0], ErrVaultNotFound)
}

func TestVault_ZeroDebtAndCollateral(t *testing.T) {
	f := newFixture(t)
	f.chain.SetCdp(id(1003), "ETH-A", "0xempty", chain.DemoProxy)
	f.chain.SetUrn(chain.IlkUrn{Ilk: "ETH-A", Urn: "0xempty"}, chain.Urn{}, decimal.Zero)

	v := collect(t, f.app.Vault(id(1003))).Last(t)

	assert.True(t, v.Debt.IsZero())
	assert.True(t, v.CollateralizationRatio.IsZero())
	assert.True(t, v.LiquidationPrice.IsZero())
	assert.False(t, v.AtRisk())
}

func TestVault_Memoized(t *testing.T) {
	f := newFixture(t)

	parsed, ok := new(big.Int).SetString("1001", 10)
	require.True(t, ok)
	assert.Same(t, f.app.Vault(id(1001)), f.app.Vault(parsed))

	first := collect(t, f.app.Vault(id(1001)))
	late := collect(t, f.app.Vault(parsed))

	require.Len(t, late.Values(), 1, "late subscriber gets the replayed value")
	assert.Equal(t, first.Last(t).Debt.String(), late.Last(t).Debt.String())
	assert.Equal(t, 1, f.chain.Count(chain.CallVatUrns))
}

func TestVault_UpdatesEveryBlock(t *testing.T) {
	f := newFixture(t)
	c := collect(t, f.app.Vault(id(1001)))

	f.chain.SetUrn(chain.IlkUrn{Ilk: "ETH-A", Urn: "0xurn1001"}, chain.Urn{
		Collateral:     decimal.NewFromInt(12),
		NormalizedDebt: decimal.NewFromInt(5000),
	}, decimal.Zero)
	f.blocks.Push(2)

	assertDecimal(t, "12", c.Last(t).LockedCollateral)
	assert.Equal(t, 2, f.chain.Count(chain.CallCdpManagerIlks))
	assert.Zero(t, f.chain.Count(chain.CallCharterNib), "standard vaults never read the overlay")
}

func TestInstiVault_OverlayOnlyWithController(t *testing.T) {
	overlay := []string{chain.CallCharterNib, chain.CallCharterPeace, chain.CallCharterUline}

	t.Run("no controller", func(t *testing.T) {
		f := newFixture(t)

		c := collect(t, f.app.InstiVault(id(1001)))
		f.blocks.Push(2)

		assert.Empty(t, c.Values())
		assert.Empty(t, c.Errors())
		for _, call := range overlay {
			assert.Zero(t, f.chain.Count(call), call)
		}
	})

	t.Run("controller", func(t *testing.T) {
		f := newFixture(t)

		c := collect(t, f.app.InstiVault(id(2001)))
		collect(t, f.app.InstiVault(id(2001)))

		v := c.Last(t)
		assert.Equal(t, Charter, v.Type)
		assert.Equal(t, chain.DemoProxy, v.Controller)
		assertDecimal(t, "0.01", v.OriginationFee)
		assertDecimal(t, "1.4", v.ActiveCollRatio)
		assertDecimal(t, "1000000", v.DebtCeiling)
		assertDecimal(t, "90900", v.Debt)

		for _, call := range overlay {
			assert.Equal(t, 1, f.chain.Count(call), call)
		}

		f.blocks.Push(2)
		for _, call := range overlay {
			assert.Equal(t, 2, f.chain.Count(call), call)
		}
	})
}

func TestErrorIsolation(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("rpc down")

	f.chain.Fail(chain.CallCharterNib, boom)

	insti := collect(t, f.app.InstiVault(id(2001)))
	vault := collect(t, f.app.Vault(id(1001)))

	require.Len(t, insti.Errors(), 1)
	assert.ErrorIs(t, insti.Errors()[0], boom)
	assert.Contains(t, insti.Errors()[0].Error(), "charterNib("+chain.DemoCharterIlk+"-"+chain.DemoProxy+")")
	assert.Len(t, vault.Values(), 1)

	f.chain.Recover(chain.CallCharterNib)
	f.blocks.Push(2)
	assert.Greater(t, len(vault.Values()), 1, "other keys keep updating")

	retry := collect(t, f.app.InstiVault(id(2001)))
	assertDecimal(t, "0.01", retry.Last(t).OriginationFee)

	warn := f.hook.LastEntry()
	require.NotNil(t, warn)
	assert.Equal(t, logrus.WarnLevel, warn.Level)
}

func TestIlkData(t *testing.T) {
	f := newFixture(t)

	ilk := collect(t, f.app.IlkData("ETH-A")).Last(t)

	assert.Equal(t, "ETH", ilk.Token)
	assertDecimal(t, "1050000", ilk.IlkDebt)
	assertDecimal(t, "14998950000", ilk.IlkDebtAvailable)
	assertDecimal(t, "1.45", ilk.LiquidationRatio)
	assertDecimal(t, "1.65", ilk.CollateralizationDangerThreshold)
	assertDecimal(t, "1.95", ilk.CollateralizationWarningThreshold)
	assertDecimal(t, "0.02", ilk.StabilityFee)
}

func TestIlkLists(t *testing.T) {
	f := newFixture(t)

	list := collect(t, f.app.IlkDataList())
	tokens := collect(t, f.app.CollateralTokens())
	prices := collect(t, f.app.CollateralPrices())

	assert.Len(t, list.Last(t), 4)
	assert.Equal(t, []string{"ETH", "WBTC", "CRVV1ETHSTETH"}, tokens.Last(t))

	got := prices.Last(t)
	require.Len(t, got, 3)
	assert.Equal(t, "WBTC", got[1].Token)
	assertDecimal(t, "40000", got[1].Price)

	cc := chain.DemoContext("testnet")
	cc.Ilks = []string{"ETH-A"}
	f.context.Next(cc)

	assert.Len(t, list.Last(t), 1)
	assert.Equal(t, []string{"ETH"}, tokens.Last(t))
}

func TestVaults(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		f := newFixture(t)

		vaults := collect(t, f.app.Vaults(chain.DemoOwner)).Last(t)

		ids := make([]string, len(vaults))
		for i, v := range vaults {
			ids[i] = v.ID.String()
		}
		assert.Equal(t, []string{"1001", "1002", "2001", "3001"}, ids)
	})

	t.Run("no proxy", func(t *testing.T) {
		f := newFixture(t)

		c := collect(t, f.app.Vaults("0xnobody"))

		require.Len(t, c.Values(), 1)
		assert.NotNil(t, c.Last(t))
		assert.Empty(t, c.Last(t))
		assert.Zero(t, f.chain.Count(chain.CallGetCdps))
	})
}

func TestAccountViews(t *testing.T) {
	f := newFixture(t)

	balances := collect(t, f.app.AccountBalances(chain.DemoOwner)).Last(t)
	require.Len(t, balances, 3)
	assert.Equal(t, "ETH", balances[0].Token)
	assertDecimal(t, "6500", balances[0].BalanceUSD)
	assertDecimal(t, "0", balances[2].Balance)

	data := collect(t, f.app.AccountData(chain.DemoOwner)).Last(t)
	assert.Equal(t, 4, data.NumberOfVaults)
	assertDecimal(t, "1200", data.DaiBalance)

	b := collect(t, f.app.Balance("WBTC", chain.DemoOwner)).Last(t)
	assert.Equal(t, "WBTC", b.Token)
	assertDecimal(t, "0.2", b.Amount)
}

func TestIlksWithBalance(t *testing.T) {
	f := newFixture(t)

	with := collect(t, f.app.IlksWithBalance(chain.DemoOwner)).Last(t)
	require.Len(t, with, 4)
	assert.True(t, with[0].Balance.Valid)
	assertDecimal(t, "3.25", with[0].Balance.Decimal)

	without := collect(t, f.app.IlksWithBalance("")).Last(t)
	require.Len(t, without, 4)
	assert.False(t, without[0].Balance.Valid)
}

func TestVaultsOverview(t *testing.T) {
	f := newFixture(t)

	o := collect(t, f.app.VaultsOverview(chain.DemoOwner)).Last(t)

	assert.Len(t, o.Vaults, 4)
	assert.Len(t, o.Ilks, 4)
	assert.Equal(t, 4, o.Summary.NumberOfVaults)
	assert.Zero(t, o.Summary.VaultsAtRisk)
	assertDecimal(t, "356000", o.Summary.TotalCollateralUSD)
	assertDecimal(t, "147450", o.Summary.TotalDebt)

	require.Len(t, o.Summary.DepositsByToken, 3)
	eth := o.Summary.DepositsByToken[0]
	assert.Equal(t, "ETH", eth.Token)
	assertDecimal(t, "220000", eth.ValueUSD)
	assertDecimal(t, "0.618", eth.Ratio.Round(3))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestClose(t *testing.T) {
	f := newFixture(t,
		WithCloser(closerFunc(func() error { return errors.New("redis") })),
		WithCloser(closerFunc(func() error { return nil })),
		WithCloser(closerFunc(func() error { return errors.New("kafka") })),
	)

	err := f.app.Close()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
}

func TestSetupRegistersUIChanges(t *testing.T) {
	f := newFixture(t)

	require.NotNil(t, f.app.UIChanges)
	assert.Len(t, f.app.UIChanges.Topics(), 6)
	assert.Contains(t, f.app.Cache().Namespaces(), "vault")
}
