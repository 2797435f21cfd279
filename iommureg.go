// Package iommureg is a deterministic software model of the RISC-V IOMMU
// programming-interface register file: the field definition table, the
// live register bank, the native register request/response interface and
// an AXI4-Lite front-end that preserves field semantics across split
// 32-bit beats.
package iommureg

import (
	"fmt"

	"github.com/tinyrange/iommureg/internal/axilite"
	"github.com/tinyrange/iommureg/internal/regbank"
	"github.com/tinyrange/iommureg/internal/regbus"
	"github.com/tinyrange/iommureg/internal/regmap"
)

// -----------------------------------------------------------------------------
// Type Aliases - These re-export types from the internal packages
// -----------------------------------------------------------------------------

// Profile parameterizes the register map (vector count, capability bits,
// queue size bounds).
type Profile = regmap.Profile

// Request is one native register-interface request.
type Request = regbus.Request

// Response answers one native register-interface request.
type Response = regbus.Response

// DefaultProfile matches the configuration the reference hardware was
// verified with.
func DefaultProfile() Profile { return regmap.DefaultProfile() }

// LoadProfile reads a yaml profile, applied on top of the defaults.
func LoadProfile(path string) (Profile, error) { return regmap.LoadProfile(path) }

// Model ties a register map, its live bank and the two access front-ends
// together. Construct one with New or NewWithProfile.
type Model struct {
	Map    *regmap.Map
	Bank   *regbank.Bank
	Native *regbus.Adapter
	AXI    *axilite.Bridge
}

// New builds a model with the default profile.
func New() (*Model, error) {
	return NewWithProfile(regmap.DefaultProfile())
}

// NewWithProfile builds a model for the given profile. A malformed
// profile fails here, never at access time.
func NewWithProfile(p Profile) (*Model, error) {
	m, err := regmap.IOMMU(p)
	if err != nil {
		return nil, fmt.Errorf("iommureg: %w", err)
	}
	bank := regbank.New(m)
	adapter := regbus.NewAdapter(m, bank)
	return &Model{
		Map:    m,
		Bank:   bank,
		Native: adapter,
		AXI:    axilite.New(adapter),
	}, nil
}

// Reset returns every register to its reset value, like the external
// reset signal.
func (m *Model) Reset() { m.Bank.Reset() }

// DeviceUpdate is the hardware-side hook: the surrounding environment
// pushes state into a register between bus transactions, bypassing write
// policies. Only bits under mask change.
func (m *Model) DeviceUpdate(index int, value, mask uint64) error {
	return m.Bank.DeviceUpdate(index, value, mask)
}
