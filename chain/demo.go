package chain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Demo addresses.
const (
	DemoOwner         = "0xa11ce"
	DemoProxy         = "0xb0b0"
	DemoCharterProxy  = "0xc4a7"
	DemoCropperProxy  = "0xc50f"
	DemoCharterIlk    = "INST-ETH-A"
	DemoCropJoinIlk   = "CRVV1ETHSTETH-A"
	demoStandardEthID = 1001
	demoStandardBtcID = 1002
	demoCharterID     = 2001
	demoCropJoinID    = 3001
)

// DemoContext is the context matching NewDemo.
func DemoContext(network string) Context {
	return Context{
		Network:      network,
		Account:      DemoOwner,
		Ilks:         []string{"ETH-A", "WBTC-A", DemoCharterIlk, DemoCropJoinIlk},
		CharterIlks:  []string{DemoCharterIlk},
		CropJoinIlks: []string{DemoCropJoinIlk},
		Tokens: map[string]string{
			DemoCharterIlk:  "ETH",
			DemoCropJoinIlk: "CRVV1ETHSTETH",
		},
	}
}

// NewDemo returns a Memory seeded with one owner whose proxy holds two
// standard vaults, a charter vault and a crop-join vault, plus wallet balances.
func NewDemo() *Memory {
	m := NewMemory()
	d := decimal.RequireFromString

	ilk := func(price, rate, ratio, fee, penalty, line, dust string) IlkParams {
		p := d(price)
		r := d(ratio)
		return IlkParams{
			Vat: VatIlk{
				NormalizedIlkDebt:        d("1000000"),
				DebtScalingFactor:        d(rate),
				MaxDebtPerUnitCollateral: p.DivRound(r, 18),
				DebtCeiling:              d(line),
				DebtFloor:                d(dust),
			},
			Spot:  SpotIlk{PriceFeedAddress: "0xfeed", LiquidationRatio: r},
			Jug:   JugIlk{StabilityFee: d(fee), FeeLastLevied: time.Unix(1700000000, 0).UTC()},
			Dog:   DogIlk{LiquidationPenalty: d(penalty)},
			Price: p,
		}
	}

	m.SetIlk("ETH-A", ilk("2000", "1.05", "1.45", "0.02", "0.13", "15000000000", "15000"))
	m.SetIlk("WBTC-A", ilk("40000", "1.02", "1.45", "0.03", "0.13", "500000000", "15000"))
	m.SetIlk(DemoCharterIlk, ilk("2000", "1.01", "1.30", "0.01", "0", "50000000", "5000"))
	m.SetIlk(DemoCropJoinIlk, ilk("1900", "1.03", "1.55", "0.025", "0.13", "20000000", "25000"))

	m.SetProxy(DemoOwner, DemoProxy)
	m.SetCharterProxy(DemoProxy, DemoCharterProxy)
	m.SetCropperProxy(DemoProxy, DemoCropperProxy)

	m.SetCdp(big.NewInt(demoStandardEthID), "ETH-A", "0xurn1001", DemoProxy)
	m.SetUrn(IlkUrn{Ilk: "ETH-A", Urn: "0xurn1001"}, Urn{Collateral: d("10"), NormalizedDebt: d("5000")}, d("0.5"))

	m.SetCdp(big.NewInt(demoStandardBtcID), "WBTC-A", "0xurn1002", DemoProxy)
	m.SetUrn(IlkUrn{Ilk: "WBTC-A", Urn: "0xurn1002"}, Urn{Collateral: d("1.5"), NormalizedDebt: d("20000")}, decimal.Zero)

	m.SetRegistryCdp(big.NewInt(demoCharterID), DemoCharterIlk, DemoProxy)
	m.SetUrn(IlkUrn{Ilk: DemoCharterIlk, Urn: DemoCharterProxy}, Urn{Collateral: d("100"), NormalizedDebt: d("90000")}, decimal.Zero)
	m.SetCharter(IlkUsr{Ilk: DemoCharterIlk, Usr: DemoProxy}, d("0.01"), d("1.4"), d("1000000"))

	m.SetRegistryCdp(big.NewInt(demoCropJoinID), DemoCropJoinIlk, DemoProxy)
	m.SetUrn(IlkUrn{Ilk: DemoCropJoinIlk, Urn: DemoCropperProxy}, Urn{Collateral: d("40"), NormalizedDebt: d("30000")}, decimal.Zero)

	m.SetBalance(TokenAccount{Token: "ETH", Account: DemoOwner}, d("3.25"))
	m.SetBalance(TokenAccount{Token: "WBTC", Account: DemoOwner}, d("0.2"))
	m.SetBalance(TokenAccount{Token: "DAI", Account: DemoOwner}, d("1200"))

	return m
}
