package vaults

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/golly-go/vaultstate/chain"
	"github.com/golly-go/vaultstate/stream"
)

var ErrVaultNotFound = errors.New("vault not found")

type VaultType string

const (
	Standard VaultType = "standard"
	Charter  VaultType = "charter"
	CropJoin VaultType = "cropjoin"
)

// VaultResolve is a vault's identity. Every financial read of the vault is
// keyed by Ilk and Urn, never by the raw id.
type VaultResolve struct {
	ID    *big.Int
	Type  VaultType
	Ilk   string
	Token string
	// Urn is the address holding the vault's collateral and debt.
	Urn   string
	Owner string
	// Proxy manages the vault on the owner's behalf.
	Proxy string
	// Controller is set for institutional (charter) vaults only.
	Controller string
}

func (r VaultResolve) equal(o VaultResolve) bool {
	return r.ID.Cmp(o.ID) == 0 &&
		r.Type == o.Type &&
		r.Ilk == o.Ilk &&
		r.Token == o.Token &&
		r.Urn == o.Urn &&
		r.Owner == o.Owner &&
		r.Proxy == o.Proxy &&
		r.Controller == o.Controller
}

type classified struct {
	ilk   string
	token string
	typ   VaultType
}

func classify(cc chain.Context, ilk string) classified {
	c := classified{ilk: ilk, token: cc.IlkToToken(ilk), typ: Standard}
	switch {
	case cc.IsCharter(ilk):
		c.typ = Charter
	case cc.IsCropJoin(ilk):
		c.typ = CropJoin
	}
	return c
}

func (a *AppContext) buildVaultResolver(id *big.Int) *stream.Stream[VaultResolve] {
	kinds := stream.DistinctComparable(stream.Combine2(a.deps.Context, a.src.cdpManagerIlks(id), classify))

	resolved := stream.SwitchMap(kinds, func(c classified) *stream.Stream[VaultResolve] {
		if c.ilk == "" {
			return stream.Fail[VaultResolve](fmt.Errorf("%w: %s", ErrVaultNotFound, id))
		}

		base := VaultResolve{ID: id, Type: c.typ, Ilk: c.ilk, Token: c.token}
		switch c.typ {
		case Charter:
			return a.resolveRegistry(base, a.src.charterUrnProxy)
		case CropJoin:
			return a.resolveRegistry(base, a.src.cropperUrnProxy)
		default:
			return a.resolveStandard(base)
		}
	})

	return stream.Distinct(resolved, VaultResolve.equal)
}

func (a *AppContext) resolveStandard(base VaultResolve) *stream.Stream[VaultResolve] {
	type managed struct{ urn, proxy string }

	cdp := stream.DistinctComparable(stream.Combine2(
		a.src.cdpManagerUrns(base.ID),
		a.src.cdpManagerOwner(base.ID),
		func(urn, proxy string) managed { return managed{urn: urn, proxy: proxy} },
	))

	return stream.SwitchMap(cdp, func(m managed) *stream.Stream[VaultResolve] {
		return stream.Map(a.src.proxyOwner(m.proxy), func(owner string) VaultResolve {
			r := base
			r.Urn, r.Proxy, r.Owner = m.urn, m.proxy, ownerOr(owner, m.proxy)
			return r
		})
	})
}

// resolveRegistry resolves a vault owned through the cdp registry. The
// registry owner is a proxy whose urn proxy holds the position.
func (a *AppContext) resolveRegistry(base VaultResolve, urnProxy byString[string]) *stream.Stream[VaultResolve] {
	usr := stream.DistinctComparable(a.src.cdpRegistryOwns(base.ID))

	return stream.SwitchMap(usr, func(usr string) *stream.Stream[VaultResolve] {
		if usr == "" {
			return stream.Fail[VaultResolve](fmt.Errorf("%w: %s has no registry owner", ErrVaultNotFound, base.ID))
		}

		return stream.Combine2(a.src.proxyOwner(usr), urnProxy(usr), func(owner, urn string) VaultResolve {
			r := base
			r.Urn, r.Proxy, r.Owner = urn, usr, ownerOr(owner, usr)
			if r.Type == Charter {
				r.Controller = usr
			}
			return r
		})
	})
}

// ownerOr falls back to the proxy itself when it has no registered owner.
func ownerOr(owner, proxy string) string {
	if owner == "" {
		return proxy
	}
	return owner
}
