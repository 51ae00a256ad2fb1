package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/db/model"
	"github.com/babylonlabs-io/simple-staking/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (db *Database) LoadToken(ctx context.Context, address common.Address) (*token.State, error) {
	var doc model.TokenDocument
	err := db.collection(model.TokenCollection).
		FindOne(ctx, bson.M{"_id": address.Hex()}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toTokenState(&doc)
}

func (db *Database) CreateToken(ctx context.Context, address common.Address, state *token.State) error {
	_, err := db.collection(model.TokenCollection).InsertOne(ctx, toTokenDocument(address, state))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %w", token.ErrTokenExists, &DuplicateKeyError{
			Key:     address.Hex(),
			Message: "token already deployed",
		})
	}
	return err
}

// UpdateToken writes the changed fields of a single token document, which
// mongo applies atomically
func (db *Database) UpdateToken(ctx context.Context, address common.Address, update token.Update) error {
	set := buildTokenSet(update)
	if len(set) == 0 {
		return nil
	}

	res, err := db.collection(model.TokenCollection).UpdateOne(
		ctx, bson.M{"_id": address.Hex()}, bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", token.ErrTokenNotDeployed, address.Hex())
	}
	return nil
}

// buildTokenSet flattens update into dotted field paths. Hex addresses never
// contain the '.' or '$' characters that mongo reserves in field names.
func buildTokenSet(update token.Update) bson.M {
	set := bson.M{}
	if update.TotalSupply != nil {
		set["total_supply"] = update.TotalSupply.Dec()
	}
	for account, balance := range update.Balances {
		set["balances."+account.Hex()] = balance.Dec()
	}
	for _, a := range update.Allowances {
		set["allowances."+a.Owner.Hex()+"."+a.Spender.Hex()] = a.Amount.Dec()
	}
	return set
}

func toTokenDocument(address common.Address, state *token.State) *model.TokenDocument {
	doc := &model.TokenDocument{
		Address:     address.Hex(),
		Name:        state.Name,
		Symbol:      state.Symbol,
		TotalSupply: "0",
		Balances:    make(map[string]string, len(state.Balances)),
		Allowances:  make(map[string]map[string]string, len(state.Allowances)),
	}
	if state.TotalSupply != nil {
		doc.TotalSupply = state.TotalSupply.Dec()
	}
	for account, balance := range state.Balances {
		doc.Balances[account.Hex()] = balance.Dec()
	}
	for owner, spenders := range state.Allowances {
		amounts := make(map[string]string, len(spenders))
		for spender, amount := range spenders {
			amounts[spender.Hex()] = amount.Dec()
		}
		doc.Allowances[owner.Hex()] = amounts
	}
	return doc
}

func toTokenState(doc *model.TokenDocument) (*token.State, error) {
	state := &token.State{
		Name:       doc.Name,
		Symbol:     doc.Symbol,
		Balances:   make(map[common.Address]*uint256.Int, len(doc.Balances)),
		Allowances: make(map[common.Address]map[common.Address]*uint256.Int, len(doc.Allowances)),
	}

	supply, err := parseTokenAmount(doc.Address, "total supply", doc.TotalSupply)
	if err != nil {
		return nil, err
	}
	state.TotalSupply = supply

	for account, value := range doc.Balances {
		addr, err := parseTokenAccount(doc.Address, account)
		if err != nil {
			return nil, err
		}
		balance, err := parseTokenAmount(doc.Address, "balance of "+account, value)
		if err != nil {
			return nil, err
		}
		state.Balances[addr] = balance
	}
	for owner, spenders := range doc.Allowances {
		ownerAddr, err := parseTokenAccount(doc.Address, owner)
		if err != nil {
			return nil, err
		}
		amounts := make(map[common.Address]*uint256.Int, len(spenders))
		for spender, value := range spenders {
			spenderAddr, err := parseTokenAccount(doc.Address, spender)
			if err != nil {
				return nil, err
			}
			amount, err := parseTokenAmount(doc.Address, "allowance of "+owner, value)
			if err != nil {
				return nil, err
			}
			amounts[spenderAddr] = amount
		}
		state.Allowances[ownerAddr] = amounts
	}
	return state, nil
}

func parseTokenAccount(key, account string) (common.Address, error) {
	if !common.IsHexAddress(account) {
		return common.Address{}, &InvalidDocumentError{
			Key:     key,
			Message: fmt.Sprintf("invalid account %q stored for token %s", account, key),
		}
	}
	return common.HexToAddress(account), nil
}

func parseTokenAmount(key, field, value string) (*uint256.Int, error) {
	if value == "" {
		return uint256.NewInt(0), nil
	}
	amount, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, &InvalidDocumentError{
			Key:     key,
			Message: fmt.Sprintf("invalid %s %q stored for token %s: %v", field, value, key, err),
		}
	}
	return amount, nil
}
