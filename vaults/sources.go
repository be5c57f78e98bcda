package vaults

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/memo"
	"github.com/golly-go/vaultstate/observe"
	"github.com/golly-go/vaultstate/stream"
)

type (
	byID[V any]     func(*big.Int) *stream.Stream[V]
	byString[V any] func(string) *stream.Stream[V]
)

// sources are the raw per-block reads every view is composed from.
type sources struct {
	cdpManagerUrns  byID[string]
	cdpManagerIlks  byID[string]
	cdpManagerOwner byID[string]
	cdpRegistryOwns byID[string]
	cdpRegistryCdps func(chain.IlkUsr) *stream.Stream[*big.Int]
	getCdps         byString[chain.Cdps]
	proxyAddress    byString[string]
	proxyOwner      byString[string]
	charterUrnProxy byString[string]
	cropperUrnProxy byString[string]
	vatUrns         func(chain.IlkUrn) *stream.Stream[chain.Urn]
	vatGem          func(chain.IlkUrn) *stream.Stream[decimal.Decimal]
	vatIlk          byString[chain.VatIlk]
	spotIlk         byString[chain.SpotIlk]
	jugIlk          byString[chain.JugIlk]
	dogIlk          byString[chain.DogIlk]
	charterNib      func(chain.IlkUsr) *stream.Stream[decimal.Decimal]
	charterPeace    func(chain.IlkUsr) *stream.Stream[decimal.Decimal]
	charterUline    func(chain.IlkUsr) *stream.Stream[decimal.Decimal]
	tokenBalance    func(chain.TokenAccount) *stream.Stream[decimal.Decimal]
	collateralPrice byString[decimal.Decimal]
}

func newSources(d observe.Deps, c chain.Calls) sources {
	return sources{
		cdpManagerUrns:  observe.Observe[*big.Int, string](d, chain.CallCdpManagerUrns, c.CdpManagerUrns, memo.BigInt),
		cdpManagerIlks:  observe.Observe[*big.Int, string](d, chain.CallCdpManagerIlks, c.CdpManagerIlks, memo.BigInt),
		cdpManagerOwner: observe.Observe[*big.Int, string](d, chain.CallCdpManagerOwner, c.CdpManagerOwner, memo.BigInt),
		cdpRegistryOwns: observe.Observe[*big.Int, string](d, chain.CallCdpRegistryOwns, c.CdpRegistryOwns, memo.BigInt),
		cdpRegistryCdps: observe.Observe[chain.IlkUsr, *big.Int](d, chain.CallCdpRegistryCdps, c.CdpRegistryCdps, chain.IlkUsr.Key),
		getCdps:         observe.Observe[string, chain.Cdps](d, chain.CallGetCdps, c.GetCdps, nil),
		proxyAddress:    observe.Observe[string, string](d, chain.CallProxyAddress, c.ProxyAddress, nil),
		proxyOwner:      observe.Observe[string, string](d, chain.CallProxyOwner, c.ProxyOwner, nil),
		charterUrnProxy: observe.Observe[string, string](d, chain.CallCharterUrnProxy, c.CharterUrnProxy, nil),
		cropperUrnProxy: observe.Observe[string, string](d, chain.CallCropperUrnProxy, c.CropperUrnProxy, nil),
		vatUrns:         observe.Observe[chain.IlkUrn, chain.Urn](d, chain.CallVatUrns, c.VatUrns, chain.IlkUrn.Key),
		vatGem:          observe.Observe[chain.IlkUrn, decimal.Decimal](d, chain.CallVatGem, c.VatGem, chain.IlkUrn.Key),
		vatIlk:          observe.Observe[string, chain.VatIlk](d, chain.CallVatIlk, c.VatIlk, nil),
		spotIlk:         observe.Observe[string, chain.SpotIlk](d, chain.CallSpotIlk, c.SpotIlk, nil),
		jugIlk:          observe.Observe[string, chain.JugIlk](d, chain.CallJugIlk, c.JugIlk, nil),
		dogIlk:          observe.Observe[string, chain.DogIlk](d, chain.CallDogIlk, c.DogIlk, nil),
		charterNib:      observe.Observe[chain.IlkUsr, decimal.Decimal](d, chain.CallCharterNib, c.CharterNib, chain.IlkUsr.Key),
		charterPeace:    observe.Observe[chain.IlkUsr, decimal.Decimal](d, chain.CallCharterPeace, c.CharterPeace, chain.IlkUsr.Key),
		charterUline:    observe.Observe[chain.IlkUsr, decimal.Decimal](d, chain.CallCharterUline, c.CharterUline, chain.IlkUsr.Key),
		tokenBalance:    observe.Observe[chain.TokenAccount, decimal.Decimal](d, chain.CallTokenBalance, c.TokenBalance, chain.TokenAccount.Key),
		collateralPrice: observe.Observe[string, decimal.Decimal](d, chain.CallCollateralPrice, c.CollateralPrice, nil),
	}
}
