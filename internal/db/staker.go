package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/babylonlabs-io/simple-staking/internal/db/model"
	"github.com/babylonlabs-io/simple-staking/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *Database) GetStake(ctx context.Context, account common.Address) (ledger.StakeRecord, error) {
	doc, err := db.findStaker(ctx, account)
	if err != nil {
		return ledger.StakeRecord{}, err
	}
	if doc == nil {
		return ledger.StakeRecord{}.Clone(), nil
	}
	return toStakeRecord(doc)
}

func (db *Database) GetReferrer(ctx context.Context, account common.Address) (common.Address, error) {
	doc, err := db.findStaker(ctx, account)
	if err != nil {
		return common.Address{}, err
	}
	if doc == nil || doc.Referrer == "" {
		return common.Address{}, nil
	}
	if !common.IsHexAddress(doc.Referrer) {
		return common.Address{}, &InvalidDocumentError{
			Key:     doc.Address,
			Message: fmt.Sprintf("invalid referrer %q stored for %s", doc.Referrer, doc.Address),
		}
	}
	return common.HexToAddress(doc.Referrer), nil
}

// Commit writes the change set as one upsert per account. A change set that
// spans several accounts is applied inside a transaction, which needs a
// replica set deployment.
func (db *Database) Commit(ctx context.Context, changes *ledger.ChangeSet) error {
	if changes == nil {
		return errors.New("change set cannot be nil")
	}
	if changes.IsEmpty() {
		return nil
	}

	models := buildStakerWrites(changes)
	if len(models) == 1 {
		return db.bulkWrite(ctx, models)
	}

	session, err := db.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, db.bulkWrite(sessCtx, models)
	})
	return err
}

// Totals walks every staker document and sums the committed principal
func (db *Database) Totals(ctx context.Context) (ledger.Totals, error) {
	opts := options.Find().SetProjection(bson.M{"amount": 1, "last_claim": 1})
	cursor, err := db.collection(model.StakerCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return ledger.Totals{}, err
	}
	defer cursor.Close(ctx)

	totals := ledger.Totals{Principal: uint256.NewInt(0)}
	for cursor.Next(ctx) {
		var doc model.StakerDocument
		if err := cursor.Decode(&doc); err != nil {
			return ledger.Totals{}, err
		}
		rec, err := toStakeRecord(&doc)
		if err != nil {
			return ledger.Totals{}, err
		}
		if err := totals.Add(rec); err != nil {
			return ledger.Totals{}, err
		}
	}
	if err := cursor.Err(); err != nil {
		return ledger.Totals{}, err
	}
	return totals, nil
}

func (db *Database) bulkWrite(ctx context.Context, models []mongo.WriteModel) error {
	opts := options.BulkWrite().SetOrdered(true)
	_, err := db.collection(model.StakerCollection).BulkWrite(ctx, models, opts)
	if err == nil {
		return nil
	}

	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		for _, e := range bulkErr.WriteErrors {
			if mongo.IsDuplicateKeyError(e) {
				// the referrer guard did not match an existing document, so the
				// upsert collided with it
				return fmt.Errorf("%w: %w", ledger.ErrReferrerAlreadySet, &DuplicateKeyError{
					Key:     fmt.Sprintf("%d", e.Index),
					Message: "staker referrer already set",
				})
			}
		}
	}
	return err
}

func buildStakerWrites(changes *ledger.ChangeSet) []mongo.WriteModel {
	accounts := changes.Accounts()
	models := make([]mongo.WriteModel, 0, len(accounts))

	for _, account := range accounts {
		filter := bson.M{"_id": account.Hex()}
		set := bson.M{}

		if rec, ok := changes.Stake(account); ok {
			set["amount"] = rec.Amount.Dec()
			set["last_claim"] = int64(rec.LastClaim)
		}
		if referrer, ok := changes.Referrer(account); ok {
			set["referrer"] = referrer.Hex()
			// only an unset or identical referrer may be written
			filter["referrer"] = bson.M{"$in": bson.A{nil, "", referrer.Hex()}}
		}

		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(filter).
			SetUpdate(bson.M{"$set": set}).
			SetUpsert(true))
	}

	return models
}

func (db *Database) findStaker(ctx context.Context, account common.Address) (*model.StakerDocument, error) {
	var doc model.StakerDocument
	err := db.collection(model.StakerCollection).
		FindOne(ctx, bson.M{"_id": account.Hex()}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func toStakeRecord(doc *model.StakerDocument) (ledger.StakeRecord, error) {
	amount := uint256.NewInt(0)
	if doc.Amount != "" {
		var err error
		amount, err = uint256.FromDecimal(doc.Amount)
		if err != nil {
			return ledger.StakeRecord{}, &InvalidDocumentError{
				Key:     doc.Address,
				Message: fmt.Sprintf("invalid amount %q stored for %s: %v", doc.Amount, doc.Address, err),
			}
		}
	}
	if doc.LastClaim < 0 {
		return ledger.StakeRecord{}, &InvalidDocumentError{
			Key:     doc.Address,
			Message: fmt.Sprintf("negative last claim stored for %s", doc.Address),
		}
	}

	return ledger.StakeRecord{
		Amount:    amount,
		LastClaim: uint64(doc.LastClaim),
	}, nil
}
