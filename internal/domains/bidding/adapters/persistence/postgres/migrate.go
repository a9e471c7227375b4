package postgres

import "gorm.io/gorm"

// Migrate applies the engine schema. External migration tooling is the
// environment's concern; this covers local and test setups.
func Migrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	return db.AutoMigrate(
		&rfqRecord{},
		&rfqLineItemRecord{},
		&invitationRecord{},
		&quoteRecord{},
		&quoteLineItemRecord{},
		&transitionRecord{},
		&outboxRecord{},
	)
}
