package regmap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Capabilities selects which capability bits the generated map advertises.
// The capabilities register is read-only; these values only shape its
// reset value and the legality rules that depend on it.
type Capabilities struct {
	Sv39    bool  `yaml:"sv39"`
	Sv39x4  bool  `yaml:"sv39x4"`
	MSIFlat bool  `yaml:"msi_flat"`
	PAS     uint8 `yaml:"pas"`
}

// Profile parameterizes the generated IOMMU register map. The zero value
// is not usable; start from DefaultProfile.
type Profile struct {
	// Vectors is the number of MSI interrupt vectors, a power of two
	// between 1 and 16. It sets the number of MSI configuration words
	// and the legal range of the icvec vector indices.
	Vectors int `yaml:"vectors"`
	// WSISupported advertises wire-signaled interrupts. When false the
	// fctl.WSI bit is clamped to zero.
	WSISupported bool `yaml:"wsi_supported"`
	// QueueLog2Max bounds the LOG2SZ-1 fields of the command and fault
	// queue base registers. Writes above the bound keep the old value.
	QueueLog2Max uint8 `yaml:"queue_log2_max"`

	Capabilities Capabilities `yaml:"capabilities"`
}

// DefaultProfile matches the configuration the reference hardware was
// verified with: 16 vectors, MSI-only interrupt generation, Sv39/Sv39x4
// translation with flat MSI remapping.
func DefaultProfile() Profile {
	return Profile{
		Vectors:      16,
		WSISupported: false,
		QueueLog2Max: 31,
		Capabilities: Capabilities{
			Sv39:    true,
			Sv39x4:  true,
			MSIFlat: true,
			PAS:     30,
		},
	}
}

// LoadProfile reads a yaml profile from path, applied on top of the
// default profile.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("regmap: read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("%w: profile %s: %v", ErrConfig, path, err)
	}
	if err := p.validate(); err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

func (p Profile) validate() error {
	if p.Vectors < 1 || p.Vectors > 16 || p.Vectors&(p.Vectors-1) != 0 {
		return fmt.Errorf("%w: vectors must be a power of two in [1,16], got %d", ErrConfig, p.Vectors)
	}
	if p.QueueLog2Max > 31 {
		return fmt.Errorf("%w: queue_log2_max must be at most 31, got %d", ErrConfig, p.QueueLog2Max)
	}
	if p.Capabilities.PAS > 63 {
		return fmt.Errorf("%w: pas must fit 6 bits, got %d", ErrConfig, p.Capabilities.PAS)
	}
	return nil
}
