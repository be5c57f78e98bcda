package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/shopspring/decimal"
)

// Call names, used for memo namespaces, log fields and call counters.
const (
	CallCdpManagerUrns  = "cdpManagerUrns"
	CallCdpManagerIlks  = "cdpManagerIlks"
	CallCdpManagerOwner = "cdpManagerOwner"
	CallCdpRegistryOwns = "cdpRegistryOwns"
	CallCdpRegistryCdps = "cdpRegistryCdps"
	CallGetCdps         = "getCdps"
	CallProxyAddress    = "proxyAddress"
	CallProxyOwner      = "proxyOwner"
	CallCharterUrnProxy = "charterUrnProxy"
	CallCropperUrnProxy = "cropperUrnProxy"
	CallVatUrns         = "vatUrns"
	CallVatGem          = "vatGem"
	CallVatIlk          = "vatIlk"
	CallSpotIlk         = "spotIlk"
	CallJugIlk          = "jugIlk"
	CallDogIlk          = "dogIlk"
	CallCharterNib      = "charterNib"
	CallCharterPeace    = "charterPeace"
	CallCharterUline    = "charterUline"
	CallTokenBalance    = "tokenBalance"
	CallCollateralPrice = "collateralPrice"
)

// ErrUnknownCall is returned when a call has no result for its parameters.
var ErrUnknownCall = errors.New("chain: no result for call")

// Calls is the set of on-chain reads the dashboard composes. Each read is
// opaque: it is keyed by block and parameters and may fail.
type Calls interface {
	CdpManagerUrns(ctx context.Context, cc Context, block uint64, id *big.Int) (string, error)
	CdpManagerIlks(ctx context.Context, cc Context, block uint64, id *big.Int) (string, error)
	CdpManagerOwner(ctx context.Context, cc Context, block uint64, id *big.Int) (string, error)
	CdpRegistryOwns(ctx context.Context, cc Context, block uint64, id *big.Int) (string, error)
	CdpRegistryCdps(ctx context.Context, cc Context, block uint64, p IlkUsr) (*big.Int, error)
	GetCdps(ctx context.Context, cc Context, block uint64, proxy string) (Cdps, error)
	ProxyAddress(ctx context.Context, cc Context, block uint64, owner string) (string, error)
	ProxyOwner(ctx context.Context, cc Context, block uint64, proxy string) (string, error)
	CharterUrnProxy(ctx context.Context, cc Context, block uint64, usr string) (string, error)
	CropperUrnProxy(ctx context.Context, cc Context, block uint64, usr string) (string, error)
	VatUrns(ctx context.Context, cc Context, block uint64, p IlkUrn) (Urn, error)
	VatGem(ctx context.Context, cc Context, block uint64, p IlkUrn) (decimal.Decimal, error)
	VatIlk(ctx context.Context, cc Context, block uint64, ilk string) (VatIlk, error)
	SpotIlk(ctx context.Context, cc Context, block uint64, ilk string) (SpotIlk, error)
	JugIlk(ctx context.Context, cc Context, block uint64, ilk string) (JugIlk, error)
	DogIlk(ctx context.Context, cc Context, block uint64, ilk string) (DogIlk, error)
	CharterNib(ctx context.Context, cc Context, block uint64, p IlkUsr) (decimal.Decimal, error)
	CharterPeace(ctx context.Context, cc Context, block uint64, p IlkUsr) (decimal.Decimal, error)
	CharterUline(ctx context.Context, cc Context, block uint64, p IlkUsr) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, cc Context, block uint64, p TokenAccount) (decimal.Decimal, error)
	CollateralPrice(ctx context.Context, cc Context, block uint64, token string) (decimal.Decimal, error)
}
