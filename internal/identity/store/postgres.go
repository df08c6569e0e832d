package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/internal/identity/metrics"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
)

// Postgres reads identity profiles from the identity_profiles table.
type Postgres struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewPostgres constructs a PostgreSQL-backed identity store; metrics may be nil.
func NewPostgres(db *sql.DB, metrics *metrics.Metrics) *Postgres {
	return &Postgres{db: db, metrics: metrics}
}

func (p *Postgres) Lookup(ctx context.Context, subject string) (*identity.Record, error) {
	start := time.Now()
	defer func() { p.metrics.ObserveLookup("postgres", time.Since(start)) }()

	query := `
		SELECT given_name, surname, street_address, city, region, postal_code,
		       country, email, phone, date_of_birth, national_id
		FROM identity_profiles
		WHERE subject = $1
	`
	var rec identity.Record
	err := p.db.QueryRowContext(ctx, query, subject).Scan(
		&rec.GivenName,
		&rec.Surname,
		&rec.StreetAddress,
		&rec.City,
		&rec.Region,
		&rec.PostalCode,
		&rec.Country,
		&rec.Email,
		&rec.Phone,
		&rec.DateOfBirth,
		&rec.NationalID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity profile: %w", err)
	}
	return &rec, nil
}

// Save upserts the profile for subject.
func (p *Postgres) Save(ctx context.Context, subject string, record *identity.Record) error {
	if record == nil {
		return fmt.Errorf("identity record is required")
	}
	query := `
		INSERT INTO identity_profiles (
			subject, given_name, surname, street_address, city, region, postal_code,
			country, email, phone, date_of_birth, national_id, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (subject) DO UPDATE SET
			given_name = EXCLUDED.given_name,
			surname = EXCLUDED.surname,
			street_address = EXCLUDED.street_address,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			postal_code = EXCLUDED.postal_code,
			country = EXCLUDED.country,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			date_of_birth = EXCLUDED.date_of_birth,
			national_id = EXCLUDED.national_id,
			updated_at = EXCLUDED.updated_at
	`
	_, err := p.db.ExecContext(ctx, query,
		subject,
		record.GivenName,
		record.Surname,
		record.StreetAddress,
		record.City,
		record.Region,
		record.PostalCode,
		record.Country,
		record.Email,
		record.Phone,
		record.DateOfBirth,
		record.NationalID,
	)
	if err != nil {
		return fmt.Errorf("save identity profile: %w", err)
	}
	return nil
}
