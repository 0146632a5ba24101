package cyclone

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Manifest is the run-provenance record written alongside a simulation's
// output: the configuration used, the storm identity, and where the run
// ended up, so results can be reproduced or audited later.
type Manifest struct {
	Storm       string  `toml:"storm"`
	Year        int     `toml:"year"`
	Steps       int     `toml:"steps"`
	FinalLat    float64 `toml:"final_lat"`
	FinalLon    float64 `toml:"final_lon"`
	FetchReverts int    `toml:"fetch_reverts"`
	Config      Config  `toml:"config"`
}

// WriteManifest serializes m as TOML to path, overwriting any existing
// file.
func WriteManifest(path string, m *Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(m)
}

// LoadConfig reads a TOML configuration file into a Config seeded with
// DefaultConfig's values, so a config file only needs to specify
// overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, &ConfigError{Msg: "cyclone: failed to load config: " + err.Error()}
	}
	return cfg, nil
}
