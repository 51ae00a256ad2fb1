package model

const StakerCollection = "staker"

// StakerDocument holds the whole ledger state of one account. Amount is a
// decimal string of base units since stakes may exceed 64 bits.
type StakerDocument struct {
	Address   string `bson:"_id"`
	Amount    string `bson:"amount,omitempty"`
	LastClaim int64  `bson:"last_claim"`
	Referrer  string `bson:"referrer,omitempty"`
}
