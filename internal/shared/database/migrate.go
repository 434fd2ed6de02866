package database

import (
	"stayvault/internal/bookings"
	"stayvault/internal/disputes"
	"stayvault/internal/ledger"
	"stayvault/internal/listings"
	"stayvault/internal/users"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&users.User{},
		&listings.Listing{},
		&bookings.Booking{},
		&ledger.EscrowTransaction{},
		&disputes.Dispute{},
	)
}
