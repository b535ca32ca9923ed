// Package lmfdb is the read-only view of the modular forms database used
// by the reduction sweep: newform attributes keyed by (level, weight) and
// the extended coefficient table keyed by label.
package lmfdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"mfmodell/hecke"
)

// ErrNotFound is returned when a label has no row in the queried table.
var ErrNotFound = errors.New("lmfdb: not found")

// Coefficient is one Hecke ring element written in the order's basis.
type Coefficient []*big.Int

// CharacterValue pairs a generator of (Z/NZ)^* with the coordinates of
// χ(gen) in the Hecke ring basis. It is stored as [gen, [c_0, ...]].
type CharacterValue struct {
	Gen    int64
	Coeffs Coefficient
}

func (c CharacterValue) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Gen, c.Coeffs})
}

func (c *CharacterValue) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("lmfdb: character value has %d entries, want 2", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Gen); err != nil {
		return fmt.Errorf("lmfdb: character generator: %w", err)
	}
	if err := json.Unmarshal(pair[1], &c.Coeffs); err != nil {
		return fmt.Errorf("lmfdb: character coefficients: %w", err)
	}
	return nil
}

// NewformStub is the subset of a newform record the sweep needs. A nil
// FieldPoly means the Hecke field is not known yet.
type NewformStub struct {
	Label           string           `json:"label"`
	Level           int              `json:"level"`
	Weight          int              `json:"weight"`
	Dim             int              `json:"dim"`
	CharOrder       int              `json:"char_order"`
	FieldPoly       []*big.Int       `json:"field_poly"`
	PowerBasis      bool             `json:"hecke_ring_power_basis"`
	Numerators      [][]*big.Int     `json:"hecke_ring_numerators"`
	Denominators    []*big.Int       `json:"hecke_ring_denominators"`
	CyclotomicGen   int              `json:"hecke_ring_cyclotomic_generator"`
	CharacterValues []CharacterValue `json:"hecke_ring_character_values"`
	AN              []Coefficient    `json:"an"`
	AP              []Coefficient    `json:"ap"`
}

// HasField reports whether the Hecke field polynomial is stored.
func (s NewformStub) HasField() bool {
	return len(s.FieldPoly) > 0
}

// BasisKind classifies the stored Hecke ring basis. A missing numerator
// list means the power basis, whatever the power-basis flag says.
func (s NewformStub) BasisKind() hecke.BasisKind {
	switch {
	case s.CyclotomicGen != 0:
		return hecke.CyclotomicBasis
	case len(s.Numerators) == 0:
		return hecke.PowerBasis
	default:
		return hecke.GenericBasis
	}
}

// BasisSpec returns the order basis description for hecke.NewOrder.
func (s NewformStub) BasisSpec() hecke.BasisSpec {
	return hecke.BasisSpec{
		Kind:         s.BasisKind(),
		Numerators:   s.Numerators,
		Denominators: s.Denominators,
	}
}

// LabelParts splits N.k.c.id.
func LabelParts(label string) (n, k, c, id string, err error) {
	parts := strings.Split(label, ".")
	if len(parts) != 4 {
		return "", "", "", "", fmt.Errorf("lmfdb: label %q does not have 4 parts", label)
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}

// Coefficients holds the longer a_n / a_p prefixes from the extended table.
type Coefficients struct {
	AN []Coefficient `json:"an"`
	AP []Coefficient `json:"ap"`
}

// Source answers the two queries of the sweep.
type Source interface {
	FormsBy(ctx context.Context, level, weight int) ([]NewformStub, error)
	ExtendedCoefficients(ctx context.Context, label string) (Coefficients, error)
}

// Fixture is one newform together with its extended coefficients, the
// on-disk interchange format read by Import and NewMemory.
type Fixture struct {
	NewformStub
	Extended *Coefficients `json:"extended,omitempty"`
}
