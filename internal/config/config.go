// Package config decodes two TOML documents: the main config
// (ISA/debug tuning) and the device config (memory layout and MMIO
// device map). Field tags and the pointer-for-default pattern follow
// the same config-loader convention as cmd/ccapp/site_config.go,
// adapted from YAML to TOML.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// MainConfig is the [memory]/[inst_set]/[debug]/[others] document.
type MainConfig struct {
	Memory struct {
		BootPC uint64 `toml:"boot_pc"`
	} `toml:"memory"`

	InstSet struct {
		MExt bool `toml:"m_ext"`
		AExt bool `toml:"a_ext"`
		CExt bool `toml:"c_ext"`
	} `toml:"inst_set"`

	Debug struct {
		EventListSize              int `toml:"event_list_size"`
		InstructionTracerListSize int `toml:"instruction_tracer_list_size"`
	} `toml:"debug"`

	Others struct {
		DecoderCacheSize int `toml:"decoder_cache_size"`
	} `toml:"others"`
}

// DefaultMainConfig returns the configuration used when no field is
// set by the TOML document: no optional extensions, a modest event
// ring, and a 1024-entry decoder cache (a document may set 0, which
// decoder.Build treats as "no cache").
func DefaultMainConfig() MainConfig {
	var c MainConfig
	c.Debug.EventListSize = 256
	c.Debug.InstructionTracerListSize = 256
	c.Others.DecoderCacheSize = 1024
	return c
}

// LoadMainConfig reads and decodes path, starting from
// DefaultMainConfig so a document that omits a section keeps sane
// defaults rather than zero values.
func LoadMainConfig(path string) (MainConfig, error) {
	c := DefaultMainConfig()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return MainConfig{}, fmt.Errorf("config: decode main config %s: %w", path, err)
	}
	return c, nil
}

// DeviceEntry is one [[devices]] table.
type DeviceEntry struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	Base uint64 `toml:"base"`
	Size uint64 `toml:"size"`

	// Enabled defaults to true; a pointer distinguishes "absent from
	// the document" from an explicit false.
	Enabled *bool `toml:"enabled"`
}

// IsEnabled returns the entry's effective enabled state.
func (d DeviceEntry) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// DeviceConfig is the [memory]/[[devices]] document.
type DeviceConfig struct {
	Memory struct {
		MemoryBase uint64 `toml:"memory_base"`
		// MemorySize is expressed in MiB in the TOML document (spec.md
		// §6); MemorySizeBytes converts it to the byte count bus.New
		// expects.
		MemorySize uint64 `toml:"memory_size"`
	} `toml:"memory"`

	Devices []DeviceEntry `toml:"devices"`
}

const bytesPerMiB = 1 << 20

// MemorySizeBytes converts the configured MiB size to bytes.
func (c DeviceConfig) MemorySizeBytes() uint64 {
	return c.Memory.MemorySize * bytesPerMiB
}

// LoadDeviceConfig reads and decodes path.
func LoadDeviceConfig(path string) (DeviceConfig, error) {
	var c DeviceConfig
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return DeviceConfig{}, fmt.Errorf("config: decode device config %s: %w", path, err)
	}
	return c, nil
}
