package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlTowerSite represents one tower site in the dataset file
type TomlTowerSite struct {
	Number int    `toml:"number"`
	Name   string `toml:"name"`
	MinQL  int    `toml:"min_ql"`
	MaxQL  int    `toml:"max_ql"`
	X      int    `toml:"x"`
	Y      int    `toml:"y"`
}

// TomlPlayfield represents one playfield and its sites in the dataset file
type TomlPlayfield struct {
	ID        int64           `toml:"id"`
	LongName  string          `toml:"long_name"`
	ShortName string          `toml:"short_name"`
	Sites     []TomlTowerSite `toml:"sites"`
}

// TomlDataset represents the top-level tower dataset
type TomlDataset struct {
	Playfields []TomlPlayfield `toml:"playfields"`
}

// LoadDataset reads the playfield and tower site dataset from a TOML file.
// The order of playfields and sites in the file is the order the catalog
// serves them in.
func LoadDataset(path string) (*TomlDataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dataset file: %w", err)
	}

	var dataset TomlDataset
	if err := toml.Unmarshal(data, &dataset); err != nil {
		return nil, fmt.Errorf("error parsing dataset file: %w", err)
	}

	return &dataset, nil
}
