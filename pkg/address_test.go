package pkg

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		addr, err := ParseAddress("0x00000000000000000000000000000000000000aa")
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress("0xaa"), addr)
	})
	t.Run("zero address allowed", func(t *testing.T) {
		addr, err := ParseAddress("0x0000000000000000000000000000000000000000")
		require.NoError(t, err)
		assert.Equal(t, common.Address{}, addr)
	})
	t.Run("invalid", func(t *testing.T) {
		_, err := ParseAddress("not-an-address")
		require.Error(t, err)
	})
	t.Run("non zero rejects zero", func(t *testing.T) {
		_, err := ParseNonZeroAddress("0x0000000000000000000000000000000000000000")
		require.Error(t, err)
	})
}
