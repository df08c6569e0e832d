// Package request assembles the ID+ verification payload from an identity
// record and a module selection.
package request

import (
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v5"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/internal/verification/module"
	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
)

// Payload field names, as they appear on the wire.
const (
	FieldFirstName       = "firstName"
	FieldSurName         = "surName"
	FieldPhysicalAddress = "physicalAddress"
	FieldCity            = "city"
	FieldState           = "state"
	FieldZip             = "zip"
	FieldCountry         = "country"
	FieldEmail           = "email"
	FieldMobileNumber    = "mobileNumber"
	FieldDOB             = "dob"
	FieldNationalID      = "nationalId"
)

// fieldOrder is the order missing fields are reported in.
var fieldOrder = []string{
	FieldFirstName, FieldSurName, FieldPhysicalAddress, FieldCity, FieldState, FieldZip,
	FieldCountry, FieldEmail, FieldMobileNumber, FieldDOB, FieldNationalID,
}

var requiredFields = map[module.Module][]string{
	module.KYC:                 {FieldFirstName, FieldSurName, FieldDOB, FieldNationalID},
	module.EmailRiskScore:      {FieldEmail},
	module.AddressRiskScore:    {FieldPhysicalAddress, FieldZip, FieldCountry},
	module.PhoneRiskScore:      {FieldMobileNumber},
	module.SigmaIdentityFraud:  {FieldFirstName, FieldSurName},
	module.SigmaSyntheticFraud: {FieldFirstName, FieldSurName},
	module.GlobalWatchlist:     {FieldFirstName, FieldSurName},
}

// RequiredFields returns the payload fields a module cannot be requested without.
func RequiredFields(m module.Module) []string {
	return append([]string(nil), requiredFields[m]...)
}

// Payload is the JSON body posted to the verification endpoint. Absent identity
// fields are omitted rather than sent as empty strings.
type Payload struct {
	Modules         []string `json:"modules"`
	FirstName       string   `json:"firstName,omitempty"`
	SurName         string   `json:"surName,omitempty"`
	PhysicalAddress string   `json:"physicalAddress,omitempty"`
	City            string   `json:"city,omitempty"`
	State           string   `json:"state,omitempty"`
	Zip             string   `json:"zip,omitempty"`
	Country         string   `json:"country,omitempty"`
	Email           string   `json:"email,omitempty"`
	MobileNumber    string   `json:"mobileNumber,omitempty"`
	DOB             string   `json:"dob,omitempty"`
	NationalID      string   `json:"nationalId,omitempty"`
}

// MissingFieldsError lists required payload fields absent from the identity.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required identity fields: " + strings.Join(e.Fields, ", ")
}

// Build converts record into a payload requesting every module in sel.
//
// An empty selection is a configuration error (CodeMisconfigured). A required
// field that is absent for any selected module is a CodeValidation error whose
// cause is a *MissingFieldsError naming all of them.
func Build(record identity.Record, sel module.Selection) (*Payload, error) {
	if sel.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeMisconfigured, "no verification modules configured")
	}

	dob, dobErr := normalizeDOB(record.DateOfBirth)
	p := &Payload{
		Modules:         sel.WireIDs(),
		FirstName:       identity.Value(record.GivenName),
		SurName:         identity.Value(record.Surname),
		PhysicalAddress: identity.Value(record.StreetAddress),
		City:            identity.Value(record.City),
		State:           identity.Value(record.Region),
		Zip:             identity.Value(record.PostalCode),
		Country:         identity.Value(record.Country),
		Email:           identity.Value(record.Email),
		MobileNumber:    identity.Value(record.Phone),
		DOB:             dob,
		NationalID:      identity.Value(record.NationalID),
	}

	values := p.fieldValues()
	needed := map[string]bool{}
	for _, m := range sel.Modules() {
		for _, f := range requiredFields[m] {
			needed[f] = true
		}
	}

	var missing []string
	for _, f := range fieldOrder {
		if needed[f] && values[f] == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		cause := &MissingFieldsError{Fields: missing}
		return nil, dErrors.Wrap(cause, dErrors.CodeValidation, cause.Error())
	}
	if needed[FieldDOB] && dobErr != nil {
		return nil, dErrors.Wrap(dobErr, dErrors.CodeValidation, "dob is not a recognised date")
	}
	return p, nil
}

func (p *Payload) fieldValues() map[string]string {
	return map[string]string{
		FieldFirstName:       p.FirstName,
		FieldSurName:         p.SurName,
		FieldPhysicalAddress: p.PhysicalAddress,
		FieldCity:            p.City,
		FieldState:           p.State,
		FieldZip:             p.Zip,
		FieldCountry:         p.Country,
		FieldEmail:           p.Email,
		FieldMobileNumber:    p.MobileNumber,
		FieldDOB:             p.DOB,
		FieldNationalID:      p.NationalID,
	}
}

var dobLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"01/02/2006",
	time.RFC3339,
}

// normalizeDOB returns the date as YYYY-MM-DD. Unparseable input is passed
// through trimmed, alongside the parse error.
func normalizeDOB(v null.String) (string, error) {
	raw := identity.Value(v)
	if raw == "" {
		return "", nil
	}
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return raw, fmt.Errorf("unrecognised date of birth format %q", raw)
}
