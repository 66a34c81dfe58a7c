package dedup

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/autoarte/AutoArte/app/models"
)

// ClaimResult reports whether the caller won the claim for a
// (source, transactionId, eventType) key. On a lost claim Prior carries the
// record of the processing that already happened.
type ClaimResult struct {
	Claimed bool
	Prior   *models.DedupRecord
}

// TryClaim atomically claims a dedup key with a conditional insert against
// the composite unique constraint. Two concurrent deliveries of the same
// transaction cannot both see Claimed == true.
//
// The claim must run inside the same transaction as the state-machine apply
// so a failed apply rolls the claim back and a legitimate provider retry is
// not mistaken for a duplicate.
func TryClaim(tx *gorm.DB, source, transactionID, eventType string) (*ClaimResult, error) {
	rec := &models.DedupRecord{
		Source:        source,
		TransactionID: transactionID,
		EventType:     eventType,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source"},
			{Name: "transaction_id"},
			{Name: "event_type"},
		},
		DoNothing: true,
	}).Create(rec)
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected > 0 {
		return &ClaimResult{Claimed: true}, nil
	}

	var prior models.DedupRecord
	if err := tx.Where("source = ? AND transaction_id = ? AND event_type = ?",
		source, transactionID, eventType).First(&prior).Error; err != nil {
		return nil, err
	}
	return &ClaimResult{Claimed: false, Prior: &prior}, nil
}

// SetOutcome records the terminal outcome on the claimed key, still inside
// the claiming transaction.
func SetOutcome(tx *gorm.DB, source, transactionID, eventType, outcome string) error {
	return tx.Model(&models.DedupRecord{}).
		Where("source = ? AND transaction_id = ? AND event_type = ?", source, transactionID, eventType).
		Update("outcome", outcome).Error
}
