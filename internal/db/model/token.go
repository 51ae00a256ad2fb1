package model

const TokenCollection = "token"

// TokenDocument holds the whole state of one token. Balances are keyed by the
// account hex and allowances by owner hex, then spender hex. All amounts are
// decimal strings of base units.
type TokenDocument struct {
	Address     string                       `bson:"_id"`
	Name        string                       `bson:"name"`
	Symbol      string                       `bson:"symbol"`
	TotalSupply string                       `bson:"total_supply"`
	Balances    map[string]string            `bson:"balances"`
	Allowances  map[string]map[string]string `bson:"allowances"`
}
