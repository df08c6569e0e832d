// Package module enumerates the ID+ verification modules and the configured
// selection of modules requested per evaluation.
package module

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v2"

	dErrors "github.com/TylerGelinas/socure/pkg/domain-errors"
)

// Module is an ID+ verification capability.
type Module int

// Declaration order is the stable iteration order for selections and payloads.
const (
	KYC Module = iota + 1
	EmailRiskScore
	AddressRiskScore
	PhoneRiskScore
	SigmaIdentityFraud
	SigmaSyntheticFraud
	SigmaDevice
	GlobalWatchlist
	DecisionMode
	SocialMedia
	AlertList
)

type descriptor struct {
	wireID     string
	sectionKey string
}

// Wire ids are part of the contract with the upstream service and must not change.
var descriptors = map[Module]descriptor{
	KYC:                 {wireID: "kyc", sectionKey: "kyc"},
	EmailRiskScore:      {wireID: "emailriskscore", sectionKey: "emailRisk"},
	AddressRiskScore:    {wireID: "addressriskscore", sectionKey: "addressRisk"},
	PhoneRiskScore:      {wireID: "phoneriskscore", sectionKey: "phoneRisk"},
	SigmaIdentityFraud:  {wireID: "sigmaidentityfraud", sectionKey: "sigmaidentityfraud"},
	SigmaSyntheticFraud: {wireID: "sigmasyntheticfraud", sectionKey: "sigmasyntheticfraud"},
	SigmaDevice:         {wireID: "sigmadevice", sectionKey: "sigmadevice"},
	GlobalWatchlist:     {wireID: "globalwatchlist", sectionKey: "globalwatchlist"},
	DecisionMode:        {wireID: "decisionmodule", sectionKey: "decisionmodule"},
	SocialMedia:         {wireID: "socialmedia", sectionKey: "socialmedia"},
	AlertList:           {wireID: "alertlist", sectionKey: "alertlist"},
}

var byWireID = func() map[string]Module {
	m := make(map[string]Module, len(descriptors))
	for mod, d := range descriptors {
		m[d.wireID] = mod
	}
	return m
}()

// All returns every known module in declaration order.
func All() []Module {
	out := make([]Module, 0, len(descriptors))
	for m := KYC; m <= AlertList; m++ {
		out = append(out, m)
	}
	return out
}

// WireID is the token used to request the module.
func (m Module) WireID() string {
	return descriptors[m].wireID
}

// SectionKeys lists the response keys that may hold this module's result,
// most specific first. Risk modules report under a camel-case key that differs
// from the request token.
func (m Module) SectionKeys() []string {
	d, ok := descriptors[m]
	if !ok {
		return nil
	}
	if d.sectionKey == d.wireID {
		return []string{d.wireID}
	}
	return []string{d.sectionKey, d.wireID}
}

func (m Module) IsValid() bool {
	_, ok := descriptors[m]
	return ok
}

func (m Module) String() string {
	if d, ok := descriptors[m]; ok {
		return d.wireID
	}
	return fmt.Sprintf("module(%d)", int(m))
}

// Parse resolves a wire id (case-insensitive) to a Module.
func Parse(s string) (Module, error) {
	if m, ok := byWireID[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return 0, dErrors.New(dErrors.CodeMisconfigured, fmt.Sprintf("unknown verification module %q", s))
}

// MarshalText encodes the module as its wire id.
func (m Module) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("invalid module %d", int(m))
	}
	return []byte(m.WireID()), nil
}

func (m *Module) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Selection is an immutable set of modules requested together.
type Selection struct {
	set *set.Set[Module]
}

// NewSelection builds a selection; duplicates collapse and invalid values are rejected.
func NewSelection(modules ...Module) (Selection, error) {
	s := set.New[Module](len(modules))
	for _, m := range modules {
		if !m.IsValid() {
			return Selection{}, dErrors.New(dErrors.CodeMisconfigured, fmt.Sprintf("invalid verification module %d", int(m)))
		}
		s.Insert(m)
	}
	return Selection{set: s}, nil
}

// MustSelection is NewSelection for fixed, known-good module lists.
func MustSelection(modules ...Module) Selection {
	s, err := NewSelection(modules...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSelection parses wire ids such as "kyc,addressriskscore". Blank entries are ignored.
func ParseSelection(values []string) (Selection, error) {
	modules := make([]Module, 0, len(values))
	for _, raw := range values {
		for part := range strings.SplitSeq(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			m, err := Parse(part)
			if err != nil {
				return Selection{}, err
			}
			modules = append(modules, m)
		}
	}
	return NewSelection(modules...)
}

func (s Selection) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Size()
}

func (s Selection) IsEmpty() bool { return s.Len() == 0 }

func (s Selection) Contains(m Module) bool {
	return s.set != nil && s.set.Contains(m)
}

// Modules returns the selected modules in declaration order.
func (s Selection) Modules() []Module {
	if s.set == nil {
		return nil
	}
	out := s.set.Slice()
	slices.Sort(out)
	return out
}

// WireIDs returns the selected wire ids in declaration order.
func (s Selection) WireIDs() []string {
	mods := s.Modules()
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.WireID()
	}
	return out
}

func (s Selection) String() string {
	return strings.Join(s.WireIDs(), ",")
}
