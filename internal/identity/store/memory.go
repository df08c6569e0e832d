// Package store provides identity record stores.
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"
	"sync"

	"github.com/guregu/null/v5"
	"gopkg.in/yaml.v3"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
)

// Memory is an in-process identity store, used for local development and tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]identity.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]identity.Record)}
}

// Lookup returns a copy of the record for subject.
func (m *Memory) Lookup(_ context.Context, subject string) (*identity.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[subject]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &rec, nil
}

// Save stores a copy of record under subject, replacing any existing record.
func (m *Memory) Save(_ context.Context, subject string, record *identity.Record) error {
	if record == nil {
		return fmt.Errorf("identity record is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[subject] = *record
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// fixtureFile is the YAML layout of an identity fixtures file:
//
//	identities:
//	  user-123:
//	    given_name: Ada
//	    email: ada@example.com
type fixtureFile struct {
	Identities map[string]fixture `yaml:"identities"`
}

type fixture struct {
	GivenName     string `yaml:"given_name"`
	Surname       string `yaml:"surname"`
	StreetAddress string `yaml:"street_address"`
	City          string `yaml:"city"`
	Region        string `yaml:"region"`
	PostalCode    string `yaml:"postal_code"`
	Country       string `yaml:"country"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	DateOfBirth   string `yaml:"date_of_birth"`
	NationalID    string `yaml:"national_id"`
}

func (f fixture) record() identity.Record {
	v := func(s string) null.String { return null.NewString(s, s != "") }
	rec := identity.Record{
		GivenName:     v(f.GivenName),
		Surname:       v(f.Surname),
		StreetAddress: v(f.StreetAddress),
		City:          v(f.City),
		Region:        v(f.Region),
		PostalCode:    v(f.PostalCode),
		Country:       v(f.Country),
		Email:         v(f.Email),
		Phone:         v(f.Phone),
		DateOfBirth:   v(f.DateOfBirth),
		NationalID:    v(f.NationalID),
	}
	rec.Normalize()
	return rec
}

// LoadFixtures reads a YAML fixtures file into the store and returns how many
// identities were loaded.
func (m *Memory) LoadFixtures(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read identity fixtures: %w", err)
	}
	return m.LoadFixturesYAML(data)
}

// LoadFixturesYAML is LoadFixtures for an in-memory document.
func (m *Memory) LoadFixturesYAML(data []byte) (int, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("decode identity fixtures: %w", err)
	}

	// Reject the whole document before touching the store.
	records := make(map[string]identity.Record, len(file.Identities))
	for subject, f := range file.Identities {
		if strings.TrimSpace(subject) == "" {
			return 0, errors.New("identity fixture with empty subject")
		}
		records[subject] = f.record()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.records, records)
	return len(file.Identities), nil
}
