package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the database-level backstops for the ledger
// invariants. The escrow service serializes per booking in-process; these
// partial unique indexes make the single-payment and single-release rules
// hold even across processes.
func MigrateConstraints(db *gorm.DB) error {
	// At most one COMPLETED guest payment per booking
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_completed_guest_payment
		ON escrow_transactions (booking_id)
		WHERE type = 'GUEST_PAYMENT' AND status = 'COMPLETED';
	`).Error
	if err != nil {
		return err
	}

	// At most one COMPLETED payout-or-refund per booking
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_completed_release
		ON escrow_transactions (booking_id)
		WHERE type IN ('HOST_PAYOUT', 'REFUND') AND status = 'COMPLETED';
	`).Error
	if err != nil {
		return err
	}

	// One active (non-cancelled) daily booking per listing and start date
	err = db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uniq_active_daily_slot
		ON bookings (listing_id, date)
		WHERE status <> 'CANCELLED' AND hours IS NULL;
	`).Error
	if err != nil {
		return err
	}

	// Ledger scan index for sweep and per-booking replays
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_escrow_transactions_booking_type
		ON escrow_transactions (booking_id, type, status);
	`).Error
}
