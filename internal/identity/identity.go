// Package identity supplies the identity attributes an evaluation verifies.
//
// Records are looked up by subject (the authenticated principal's identifier)
// from a Source. Sources are composable: a store can be fronted by a cache via
// CachedSource.
package identity

import (
	"context"
	"strings"

	"github.com/guregu/null/v5"
)

// Record holds the attributes of one identity. Every field is optional; a
// blank value is treated the same as a missing one.
type Record struct {
	GivenName     null.String `json:"given_name" validate:"omitempty,max=256"`
	Surname       null.String `json:"surname" validate:"omitempty,max=256"`
	StreetAddress null.String `json:"street_address" validate:"omitempty,max=256"`
	City          null.String `json:"city" validate:"omitempty,max=256"`
	Region        null.String `json:"region" validate:"omitempty,max=256"`
	PostalCode    null.String `json:"postal_code" validate:"omitempty,max=32"`
	Country       null.String `json:"country" validate:"omitempty,max=64"`
	Email         null.String `json:"email" validate:"omitempty,email,max=256"`
	Phone         null.String `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth   null.String `json:"date_of_birth" validate:"omitempty,max=32"`
	NationalID    null.String `json:"national_id" validate:"omitempty,max=64"`
}

// Present reports whether v carries a non-blank value.
func Present(v null.String) bool {
	return v.Valid && strings.TrimSpace(v.String) != ""
}

// Value returns the trimmed value of v, or "" when absent.
func Value(v null.String) string {
	if !v.Valid {
		return ""
	}
	return strings.TrimSpace(v.String)
}

// Normalize trims every field and turns blank values into nulls.
func (r *Record) Normalize() {
	for _, f := range r.fields() {
		if Present(*f) {
			*f = null.StringFrom(strings.TrimSpace(f.String))
		} else {
			*f = null.String{}
		}
	}
}

// IsEmpty reports whether no field carries a value.
func (r *Record) IsEmpty() bool {
	for _, f := range r.fields() {
		if Present(*f) {
			return false
		}
	}
	return true
}

func (r *Record) fields() []*null.String {
	return []*null.String{
		&r.GivenName, &r.Surname, &r.StreetAddress, &r.City, &r.Region,
		&r.PostalCode, &r.Country, &r.Email, &r.Phone, &r.DateOfBirth, &r.NationalID,
	}
}

// Source resolves a subject to its identity record. Implementations return
// sentinel.ErrNotFound when the subject is unknown.
type Source interface {
	Lookup(ctx context.Context, subject string) (*Record, error)
}
