package chain

import (
	"slices"
	"strings"
)

// Context describes the network the reads run against. A new Context on the
// context stream re-triggers every live read.
type Context struct {
	Network string
	// Account is the connected wallet, empty when read-only.
	Account string

	Ilks         []string
	CharterIlks  []string
	CropJoinIlks []string

	// Tokens overrides the ilk to token mapping for ilks whose token is not
	// the part before the first dash.
	Tokens map[string]string
}

// IsCharter reports whether ilk is an institutional (charter) collateral type.
func (c Context) IsCharter(ilk string) bool {
	return slices.Contains(c.CharterIlks, ilk)
}

// IsCropJoin reports whether ilk is a crop-join collateral type.
func (c Context) IsCropJoin(ilk string) bool {
	return slices.Contains(c.CropJoinIlks, ilk)
}

// IlkToToken maps a collateral type to its token symbol, e.g. ETH-A to ETH.
func (c Context) IlkToToken(ilk string) string {
	if t, ok := c.Tokens[ilk]; ok {
		return t
	}
	if i := strings.Index(ilk, "-"); i > 0 {
		return ilk[:i]
	}
	return ilk
}

// CollateralTokens returns the distinct tokens of every known ilk in ilk order.
func (c Context) CollateralTokens() []string {
	seen := make(map[string]struct{}, len(c.Ilks))
	tokens := make([]string, 0, len(c.Ilks))
	for _, ilk := range c.Ilks {
		t := c.IlkToToken(ilk)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tokens = append(tokens, t)
	}
	return tokens
}
