package token

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidReceiver       = errors.New("invalid receiver")
	ErrInvalidSender         = errors.New("invalid sender")
	ErrSupplyOverflow        = errors.New("total supply overflow")
	ErrTokenExists           = errors.New("token already deployed")
	ErrTokenNotDeployed      = errors.New("token not deployed")
)

// Token is the fungible token collaborator used by the staking engine. from is the
// identity executing Transfer; spender is the identity executing TransferFrom.
//
//go:generate mockery --name=Token --output=../../tests/mocks --outpkg=mocks --filename=mock_token.go
type Token interface {
	Address() common.Address
	BalanceOf(ctx context.Context, account common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to common.Address, amount *uint256.Int) error
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *uint256.Int) error
}
