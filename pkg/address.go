package pkg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ParseAddress parses a 0x prefixed hex account address. The zero address is accepted
// since it is the null identifier.
func ParseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address %q", address)
	}
	return common.HexToAddress(address), nil
}

// ParseNonZeroAddress behaves like ParseAddress but rejects the zero address
func ParseNonZeroAddress(address string) (common.Address, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return addr, err
	}
	if addr == (common.Address{}) {
		return addr, fmt.Errorf("address %q must not be the zero address", address)
	}
	return addr, nil
}
