package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"stayvault/internal/listings"
	"stayvault/internal/shared/config"
	"stayvault/internal/shared/database"
	"stayvault/internal/users"

	"github.com/google/uuid"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting StayVault Database Seeder...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	// Clean database
	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	// Seed data
	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables in reverse dependency order
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"disputes",
		"escrow_transactions",
		"bookings",
		"listings",
		"users",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec("SET CONSTRAINTS ALL DEFERRED").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to defer constraints: %w", err)
	}

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	if err := tx.Exec("SET CONSTRAINTS ALL IMMEDIATE").Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to restore constraints: %w", err)
	}

	return tx.Commit().Error
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	// Seed users first (no dependencies)
	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	// Seed listings owned by the host users
	if err := s.SeedListings(userIDs); err != nil {
		return fmt.Errorf("failed to seed listings: %w", err)
	}

	// Clear Redis cache so availability answers start fresh
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedUsers creates an admin, two hosts and two guests
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
	}{
		{"admin", "Platform", "Admin", "admin@stayvault.io", users.RoleAdmin},
		{"host1", "Amara", "Okafor", "amara.host@stayvault.io", users.RoleHost},
		{"host2", "Jonas", "Lindqvist", "jonas.host@stayvault.io", users.RoleHost},
		{"guest1", "Priya", "Nair", "priya.guest@stayvault.io", users.RoleGuest},
		{"guest2", "Diego", "Fuentes", "diego.guest@stayvault.io", users.RoleGuest},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:        uuid.New(),
			FirstName: userData.firstName,
			LastName:  userData.lastName,
			Email:     userData.email,
			Role:      userData.role,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}

	return userIDs, nil
}

// SeedListings creates daily and hourly listings across the seeded hosts
func (s *Seeder) SeedListings(userIDs map[string]uuid.UUID) error {
	fmt.Println("  🏠 Seeding listings...")

	listingsData := []struct {
		hostKey       string
		title         string
		description   string
		mode          listings.PricingMode
		basePrice     float64
		extraGuestFee float64
		cautionFee    float64
		maxGuests     int
		policy        listings.CancellationPolicy
		checkOutHour  int
		openHours     map[string][]int
	}{
		{
			hostKey:       "host1",
			title:         "Canal View Loft",
			description:   "Bright loft overlooking the canal, five minutes from the old town.",
			mode:          listings.ModeDaily,
			basePrice:     95.0,
			extraGuestFee: 15.0,
			cautionFee:    120.0,
			maxGuests:     4,
			policy:        listings.PolicyFlexible,
			checkOutHour:  11,
		},
		{
			hostKey:       "host1",
			title:         "Garden Studio",
			description:   "Quiet studio with a private garden entrance.",
			mode:          listings.ModeDaily,
			basePrice:     60.0,
			extraGuestFee: 10.0,
			cautionFee:    80.0,
			maxGuests:     2,
			policy:        listings.PolicyStrict,
			checkOutHour:  10,
		},
		{
			hostKey:       "host2",
			title:         "Downtown Meeting Room",
			description:   "Seats twelve, whiteboard wall, coffee included.",
			mode:          listings.ModeHourly,
			basePrice:     25.0,
			extraGuestFee: 0,
			cautionFee:    50.0,
			maxGuests:     12,
			policy:        listings.PolicyModerate,
			checkOutHour:  11,
			openHours: map[string][]int{
				"mon": {8, 9, 10, 11, 12, 13, 14, 15, 16, 17},
				"tue": {8, 9, 10, 11, 12, 13, 14, 15, 16, 17},
				"wed": {8, 9, 10, 11, 12, 13, 14, 15, 16, 17},
				"thu": {8, 9, 10, 11, 12, 13, 14, 15, 16, 17},
				"fri": {8, 9, 10, 11, 12, 13, 14, 15, 16},
			},
		},
		{
			hostKey:       "host2",
			title:         "Rooftop Event Space",
			description:   "Open-air rooftop for evening events, city skyline views.",
			mode:          listings.ModeHourly,
			basePrice:     80.0,
			extraGuestFee: 5.0,
			cautionFee:    300.0,
			maxGuests:     40,
			policy:        listings.PolicyStrict,
			checkOutHour:  11,
			openHours: map[string][]int{
				"fri": {17, 18, 19, 20, 21, 22},
				"sat": {15, 16, 17, 18, 19, 20, 21, 22},
			},
		},
	}

	for _, listingData := range listingsData {
		listing := listings.Listing{
			ID:                 uuid.New(),
			HostID:             userIDs[listingData.hostKey],
			Title:              listingData.title,
			Description:        listingData.description,
			Mode:               listingData.mode,
			BasePrice:          listingData.basePrice,
			ExtraGuestFee:      listingData.extraGuestFee,
			CautionFee:         listingData.cautionFee,
			MaxGuests:          listingData.maxGuests,
			CancellationPolicy: listingData.policy,
			CheckOutHour:       listingData.checkOutHour,
			OpenHours:          listingData.openHours,
			Status:             "ACTIVE",
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&listing).Error; err != nil {
			return fmt.Errorf("failed to create listing %s: %w", listing.Title, err)
		}

		fmt.Printf("    ✅ Created listing: %s (%s, %s)\n", listing.Title, listing.Mode, listing.CancellationPolicy)
	}

	return nil
}
