package config

import (
	"errors"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/utils"
	"github.com/babylonlabs-io/simple-staking/pkg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type StakingConfig struct {
	Owner    string      `mapstructure:"owner"`
	Contract string      `mapstructure:"contract"`
	Token    TokenConfig `mapstructure:"token"`
}

// TokenConfig describes the test token deployed on start. Amounts are whole
// tokens, e.g. "1000000" or "0.5".
type TokenConfig struct {
	Address         string `mapstructure:"address"`
	Name            string `mapstructure:"name"`
	Symbol          string `mapstructure:"symbol"`
	InitialSupply   string `mapstructure:"initial-supply"`
	ContractFunding string `mapstructure:"contract-funding"`
}

func (cfg *StakingConfig) Validate() error {
	owner, err := pkg.ParseNonZeroAddress(cfg.Owner)
	if err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}
	contract, err := pkg.ParseNonZeroAddress(cfg.Contract)
	if err != nil {
		return fmt.Errorf("invalid contract: %w", err)
	}
	if owner == contract {
		return errors.New("owner and contract must be different accounts")
	}

	return cfg.Token.Validate()
}

func (cfg *StakingConfig) OwnerAddress() common.Address {
	return common.HexToAddress(cfg.Owner)
}

func (cfg *StakingConfig) ContractAddress() common.Address {
	return common.HexToAddress(cfg.Contract)
}

func (cfg *TokenConfig) Validate() error {
	if _, err := pkg.ParseNonZeroAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid token address: %w", err)
	}
	if cfg.Symbol == "" {
		return errors.New("token symbol is required")
	}

	supply, err := utils.ParseTokenAmount(cfg.InitialSupply)
	if err != nil {
		return fmt.Errorf("invalid initial-supply: %w", err)
	}
	funding, err := cfg.ContractFundingAmount()
	if err != nil {
		return err
	}
	if supply.Lt(funding) {
		return errors.New("contract-funding cannot exceed initial-supply")
	}

	return nil
}

func (cfg *TokenConfig) TokenAddress() common.Address {
	return common.HexToAddress(cfg.Address)
}

func (cfg *TokenConfig) InitialSupplyAmount() (*uint256.Int, error) {
	return utils.ParseTokenAmount(cfg.InitialSupply)
}

// ContractFundingAmount returns the reserve moved from the owner to the
// contract on start. An empty value means no funding.
func (cfg *TokenConfig) ContractFundingAmount() (*uint256.Int, error) {
	if cfg.ContractFunding == "" {
		return uint256.NewInt(0), nil
	}
	funding, err := utils.ParseTokenAmount(cfg.ContractFunding)
	if err != nil {
		return nil, fmt.Errorf("invalid contract-funding: %w", err)
	}
	return funding, nil
}
