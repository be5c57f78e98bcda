package blocks

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/segmentio/encoding/json"
)

var ErrBadHead = errors.New("blocks: malformed head payload")

// Head is the wire form of a new block announcement.
type Head struct {
	Number json.RawMessage `json:"number"`
	Hash   string          `json:"hash,omitempty"`
}

// EncodeHead renders n as {"number":n}.
func EncodeHead(n uint64) ([]byte, error) {
	return json.Marshal(Head{Number: json.RawMessage(strconv.FormatUint(n, 10))})
}

// ParseHead accepts a bare block number (decimal or 0x hex) or a JSON object
// whose "number" field holds one, as a number or a string.
func ParseHead(payload []byte) (uint64, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return 0, ErrBadHead
	}

	if payload[0] != '{' {
		return parseNumber(string(payload))
	}

	var h Head
	if err := json.Unmarshal(payload, &h); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadHead, err)
	}
	if len(h.Number) == 0 {
		return 0, fmt.Errorf("%w: missing number", ErrBadHead)
	}

	if h.Number[0] == '"' {
		var s string
		if err := json.Unmarshal(h.Number, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBadHead, err)
		}
		return parseNumber(s)
	}
	return parseNumber(string(h.Number))
}

func parseNumber(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadHead, s)
	}
	return n, nil
}
