// Package locus loads the diagnostic loci used to call the Plasmepsin 2/3
// amplification breakpoint.
package locus

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Configuration keys in the JSON config file.
const (
	SectionKey = "grc_plasmepsin"
	LociKey    = SectionKey + ".plasmepsin_loci"
	ColumnKey  = SectionKey + ".output_column"
)

// DefaultColumn is the output column name used when the config does not set one.
const DefaultColumn = "P23:BP"

// Locus is a diagnostic position together with the genotypes that indicate
// the amplification allele and the label emitted when one of them is seen.
type Locus struct {
	Position  string   `mapstructure:"Position"`  // chromosome:coordinate
	Genotypes []string `mapstructure:"Genotypes"` // alternate allele genotype calls
	Variant   string   `mapstructure:"Variant"`   // label emitted on match
}

// IsAlternate reports whether call is one of the locus' alternate genotypes.
func (l Locus) IsAlternate(call string) bool {
	return slices.Contains(l.Genotypes, call)
}

// Config is the loaded locus configuration. The order of Loci is the calling
// priority: the first locus whose alternate genotype is observed wins.
type Config struct {
	Loci   []Locus
	Column string
}

// Positions returns the set of configured positions.
func (c *Config) Positions() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Loci))
	for _, l := range c.Loci {
		set[l.Position] = struct{}{}
	}
	return set
}

// Load reads the JSON config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Path: path, Message: "read config", Err: err}
	}

	if !v.IsSet(LociKey) {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("missing %q", LociKey)}
	}

	var loci []Locus
	if err := v.UnmarshalKey(LociKey, &loci); err != nil {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("decode %q", LociKey), Err: err}
	}
	if len(loci) == 0 {
		return nil, &ConfigError{Path: path, Message: fmt.Sprintf("%q is empty", LociKey)}
	}

	for i, l := range loci {
		if err := validate(l); err != nil {
			return nil, &ConfigError{Path: path, Message: fmt.Sprintf("locus %d: %v", i, err)}
		}
	}

	column := strings.TrimSpace(v.GetString(ColumnKey))
	if column == "" {
		column = DefaultColumn
	}

	return &Config{Loci: loci, Column: column}, nil
}

func validate(l Locus) error {
	chrom, coord, ok := strings.Cut(l.Position, ":")
	if !ok || chrom == "" || coord == "" {
		return fmt.Errorf("position %q is not chromosome:coordinate", l.Position)
	}
	if len(l.Genotypes) == 0 {
		return fmt.Errorf("position %s has no alternate genotypes", l.Position)
	}
	if l.Variant == "" {
		return fmt.Errorf("position %s has no variant label", l.Position)
	}
	return nil
}

// ConfigError reports a config file that is missing, unreadable or malformed.
type ConfigError struct {
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
