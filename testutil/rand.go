package testutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// RandomAlphaNum generates random alphanumeric string
// in case length <= 0 it returns empty string
func RandomAlphaNum(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	if length <= 0 {
		return "", fmt.Errorf("length must be greater than 0")
	}

	randomString := make([]byte, length)
	for i := range randomString {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		randomString[i] = charset[num.Int64()]
	}

	return string(randomString), nil
}

// RandomAddress returns a random non-zero account address
func RandomAddress(t *testing.T) common.Address {
	t.Helper()

	var addr common.Address
	for addr == (common.Address{}) {
		_, err := rand.Read(addr[:])
		require.NoError(t, err)
	}
	return addr
}

// RandomAmount returns a random amount in [min, max] base units
func RandomAmount(min, max uint64) *uint256.Int {
	return uint256.NewInt(uint64(gofakeit.UintRange(uint(min), uint(max))))
}
