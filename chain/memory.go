package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// IlkParams bundles the per collateral type reads served by Memory.
type IlkParams struct {
	Vat   VatIlk
	Spot  SpotIlk
	Jug   JugIlk
	Dog   DogIlk
	Price decimal.Decimal
}

type cdpRecord struct {
	ilk   string
	urn   string
	owner string
}

// Memory is an in-process chain that serves Calls from maps. It backs the CLI
// demo and the tests; every call is counted and can be made to fail.
type Memory struct {
	mu sync.RWMutex

	head    uint64
	latency time.Duration

	cdps           map[string]cdpRecord
	registryOwners map[string]string
	registryCdps   map[IlkUsr]*big.Int
	proxies        map[string]string
	charterProxies map[string]string
	cropperProxies map[string]string
	urns           map[IlkUrn]Urn
	gems           map[IlkUrn]decimal.Decimal
	ilks           map[string]IlkParams
	nib            map[IlkUsr]decimal.Decimal
	peace          map[IlkUsr]decimal.Decimal
	uline          map[IlkUsr]decimal.Decimal
	balances       map[TokenAccount]decimal.Decimal

	counts   map[string]int
	failures map[string]error
}

var _ Calls = (*Memory)(nil)

// NewMemory returns an empty chain at block 1.
func NewMemory() *Memory {
	return &Memory{
		head:           1,
		cdps:           make(map[string]cdpRecord),
		registryOwners: make(map[string]string),
		registryCdps:   make(map[IlkUsr]*big.Int),
		proxies:        make(map[string]string),
		charterProxies: make(map[string]string),
		cropperProxies: make(map[string]string),
		urns:           make(map[IlkUrn]Urn),
		gems:           make(map[IlkUrn]decimal.Decimal),
		ilks:           make(map[string]IlkParams),
		nib:            make(map[IlkUsr]decimal.Decimal),
		peace:          make(map[IlkUsr]decimal.Decimal),
		uline:          make(map[IlkUsr]decimal.Decimal),
		balances:       make(map[TokenAccount]decimal.Decimal),
		counts:         make(map[string]int),
		failures:       make(map[string]error),
	}
}

// Head returns the latest block number.
func (m *Memory) Head(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.head, nil
}

// Mine advances the head by one block and returns it.
func (m *Memory) Mine() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.head++
	return m.head
}

// SetLatency delays every call by d, or until its context is cancelled.
func (m *Memory) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// Fail makes every call named call return err until Recover is called.
func (m *Memory) Fail(call string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[call] = err
}

// Recover undoes Fail.
func (m *Memory) Recover(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, call)
}

// Count returns how many times call was invoked.
func (m *Memory) Count(call string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counts[call]
}

// SetCdp registers a standard vault managed by the cdp manager. owner is the
// proxy that owns it.
func (m *Memory) SetCdp(id *big.Int, ilk, urn, owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cdps[id.String()] = cdpRecord{ilk: ilk, urn: urn, owner: owner}
}

// SetRegistryCdp registers a charter or crop-join vault. The cdp manager
// still knows its ilk; the registry records usr as its owner.
func (m *Memory) SetRegistryCdp(id *big.Int, ilk, usr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cdps[id.String()] = cdpRecord{ilk: ilk}
	m.registryOwners[id.String()] = usr
	m.registryCdps[IlkUsr{Ilk: ilk, Usr: usr}] = new(big.Int).Set(id)
}

// SetProxy records owner's proxy.
func (m *Memory) SetProxy(owner, proxy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proxies[owner] = proxy
}

// SetCharterProxy records the charter urn proxy of usr.
func (m *Memory) SetCharterProxy(usr, proxy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charterProxies[usr] = proxy
}

// SetCropperProxy records the cropper urn proxy of usr.
func (m *Memory) SetCropperProxy(usr, proxy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cropperProxies[usr] = proxy
}

// SetUrn sets the collateral and normalized debt of an urn, plus its free gem.
func (m *Memory) SetUrn(p IlkUrn, u Urn, gem decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urns[p] = u
	m.gems[p] = gem
}

// SetIlk sets the parameters and price of a collateral type.
func (m *Memory) SetIlk(ilk string, p IlkParams) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ilks[ilk] = p
}

// SetCharter sets the institutional overlay of a charter position.
func (m *Memory) SetCharter(p IlkUsr, nib, peace, uline decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nib[p] = nib
	m.peace[p] = peace
	m.uline[p] = uline
}

// SetBalance sets a token balance.
func (m *Memory) SetBalance(p TokenAccount, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[p] = amount
}

func (m *Memory) begin(ctx context.Context, call string) error {
	m.mu.Lock()
	m.counts[call]++
	failure := m.failures[call]
	latency := m.latency
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return failure
}

func (m *Memory) CdpManagerUrns(ctx context.Context, _ Context, _ uint64, id *big.Int) (string, error) {
	if err := m.begin(ctx, CallCdpManagerUrns); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cdps[id.String()].urn, nil
}

func (m *Memory) CdpManagerIlks(ctx context.Context, _ Context, _ uint64, id *big.Int) (string, error) {
	if err := m.begin(ctx, CallCdpManagerIlks); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cdps[id.String()].ilk, nil
}

func (m *Memory) CdpManagerOwner(ctx context.Context, _ Context, _ uint64, id *big.Int) (string, error) {
	if err := m.begin(ctx, CallCdpManagerOwner); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cdps[id.String()].owner, nil
}

func (m *Memory) CdpRegistryOwns(ctx context.Context, _ Context, _ uint64, id *big.Int) (string, error) {
	if err := m.begin(ctx, CallCdpRegistryOwns); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registryOwners[id.String()], nil
}

func (m *Memory) CdpRegistryCdps(ctx context.Context, _ Context, _ uint64, p IlkUsr) (*big.Int, error) {
	if err := m.begin(ctx, CallCdpRegistryCdps); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.registryCdps[p]; ok {
		return new(big.Int).Set(id), nil
	}
	return nil, nil
}

func (m *Memory) GetCdps(ctx context.Context, _ Context, _ uint64, proxy string) (Cdps, error) {
	if err := m.begin(ctx, CallGetCdps); err != nil {
		return Cdps{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []*big.Int
	for key, rec := range m.cdps {
		if proxy == "" || rec.owner != proxy {
			continue
		}
		id, _ := new(big.Int).SetString(key, 10)
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Cmp(ids[j]) < 0 })

	out := Cdps{IDs: ids, Urns: make([]string, len(ids)), Ilks: make([]string, len(ids))}
	for i, id := range ids {
		rec := m.cdps[id.String()]
		out.Urns[i] = rec.urn
		out.Ilks[i] = rec.ilk
	}
	return out, nil
}

func (m *Memory) ProxyAddress(ctx context.Context, _ Context, _ uint64, owner string) (string, error) {
	if err := m.begin(ctx, CallProxyAddress); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.proxies[owner], nil
}

func (m *Memory) ProxyOwner(ctx context.Context, _ Context, _ uint64, proxy string) (string, error) {
	if err := m.begin(ctx, CallProxyOwner); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for owner, p := range m.proxies {
		if p == proxy {
			return owner, nil
		}
	}
	return "", nil
}

func (m *Memory) CharterUrnProxy(ctx context.Context, _ Context, _ uint64, usr string) (string, error) {
	if err := m.begin(ctx, CallCharterUrnProxy); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.charterProxies[usr], nil
}

func (m *Memory) CropperUrnProxy(ctx context.Context, _ Context, _ uint64, usr string) (string, error) {
	if err := m.begin(ctx, CallCropperUrnProxy); err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cropperProxies[usr], nil
}

func (m *Memory) VatUrns(ctx context.Context, _ Context, _ uint64, p IlkUrn) (Urn, error) {
	if err := m.begin(ctx, CallVatUrns); err != nil {
		return Urn{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.urns[p], nil
}

func (m *Memory) VatGem(ctx context.Context, _ Context, _ uint64, p IlkUrn) (decimal.Decimal, error) {
	if err := m.begin(ctx, CallVatGem); err != nil {
		return decimal.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gems[p], nil
}

func (m *Memory) ilk(ctx context.Context, call, ilk string) (IlkParams, error) {
	if err := m.begin(ctx, call); err != nil {
		return IlkParams{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.ilks[ilk]
	if !ok {
		return IlkParams{}, fmt.Errorf("%s(%s): %w", call, ilk, ErrUnknownCall)
	}
	return p, nil
}

func (m *Memory) VatIlk(ctx context.Context, _ Context, _ uint64, ilk string) (VatIlk, error) {
	p, err := m.ilk(ctx, CallVatIlk, ilk)
	return p.Vat, err
}

func (m *Memory) SpotIlk(ctx context.Context, _ Context, _ uint64, ilk string) (SpotIlk, error) {
	p, err := m.ilk(ctx, CallSpotIlk, ilk)
	return p.Spot, err
}

func (m *Memory) JugIlk(ctx context.Context, _ Context, _ uint64, ilk string) (JugIlk, error) {
	p, err := m.ilk(ctx, CallJugIlk, ilk)
	return p.Jug, err
}

func (m *Memory) DogIlk(ctx context.Context, _ Context, _ uint64, ilk string) (DogIlk, error) {
	p, err := m.ilk(ctx, CallDogIlk, ilk)
	return p.Dog, err
}

func (m *Memory) charter(ctx context.Context, call string, values map[IlkUsr]decimal.Decimal, p IlkUsr) (decimal.Decimal, error) {
	if err := m.begin(ctx, call); err != nil {
		return decimal.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return values[p], nil
}

func (m *Memory) CharterNib(ctx context.Context, _ Context, _ uint64, p IlkUsr) (decimal.Decimal, error) {
	return m.charter(ctx, CallCharterNib, m.nib, p)
}

func (m *Memory) CharterPeace(ctx context.Context, _ Context, _ uint64, p IlkUsr) (decimal.Decimal, error) {
	return m.charter(ctx, CallCharterPeace, m.peace, p)
}

func (m *Memory) CharterUline(ctx context.Context, _ Context, _ uint64, p IlkUsr) (decimal.Decimal, error) {
	return m.charter(ctx, CallCharterUline, m.uline, p)
}

func (m *Memory) TokenBalance(ctx context.Context, _ Context, _ uint64, p TokenAccount) (decimal.Decimal, error) {
	if err := m.begin(ctx, CallTokenBalance); err != nil {
		return decimal.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[p], nil
}

func (m *Memory) CollateralPrice(ctx context.Context, cc Context, _ uint64, token string) (decimal.Decimal, error) {
	if err := m.begin(ctx, CallCollateralPrice); err != nil {
		return decimal.Zero, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if token == "DAI" {
		return decimal.NewFromInt(1), nil
	}
	for ilk, p := range m.ilks {
		if cc.IlkToToken(ilk) == token && !p.Price.IsZero() {
			return p.Price, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%s(%s): %w", CallCollateralPrice, token, ErrUnknownCall)
}
