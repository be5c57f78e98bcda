package memo

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// KeyFunc maps a factory argument to its canonical key. Arguments that mean
// the same thing must map to the same string.
type KeyFunc[A any] func(A) string

// Canonical keys scalar arguments by value. Integers and floats are formatted
// with strconv, *big.Int and decimal.Decimal in base 10, strings verbatim and
// fmt.Stringer through String. Anything else panics: composite arguments need
// an explicit KeyFunc.
func Canonical[A any](a A) string {
	return canonical(a)
}

// BigInt keys a *big.Int by its base-10 value.
func BigInt(n *big.Int) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}

// Join canonicalizes each part and joins them with sep.
func Join(sep string, parts ...any) string {
	keys := make([]string, len(parts))
	for i, p := range parts {
		keys[i] = canonical(p)
	}
	return strings.Join(keys, sep)
}

func canonical(v any) string {
	switch x := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *big.Int:
		return BigInt(x)
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		return x.String()
	default:
		panic(fmt.Sprintf("memo: no canonical key for %T, supply a KeyFunc", v))
	}
}
