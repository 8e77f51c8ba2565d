package audit

import (
	"fmt"

	"github.com/spf13/viper"
)

// BlockExpectation is the expected instance count of one hierarchical block
type BlockExpectation struct {
	Name  string `mapstructure:"name" json:"name"`
	Count int    `mapstructure:"count" json:"count"`
}

// PageExpectation is the expected instance count of one schematic page
type PageExpectation struct {
	Page  int `mapstructure:"page" json:"page"`
	Count int `mapstructure:"count" json:"count"`
}

// InstanceExpectation pins a designator to the block it must belong to
type InstanceExpectation struct {
	RefDes string `mapstructure:"refdes" json:"refdes"`
	Block  string `mapstructure:"block" json:"block"`
}

// Bounds is the drawing area instance coordinates must fall inside
type Bounds struct {
	MaxX float64 `mapstructure:"max_x" json:"max_x"`
	MaxY float64 `mapstructure:"max_y" json:"max_y"`
}

// Expectations drive the design logic audit. Lists are used instead of maps
// so block and designator names keep their case through viper.
type Expectations struct {
	Tolerance int                   `mapstructure:"tolerance" json:"tolerance"`
	Blocks    []BlockExpectation    `mapstructure:"blocks" json:"blocks"`
	Pages     []PageExpectation     `mapstructure:"pages" json:"pages"`
	Instances []InstanceExpectation `mapstructure:"instances" json:"instances"`
	Bounds    Bounds                `mapstructure:"bounds" json:"bounds"`
	MinWires  int                   `mapstructure:"min_wires" json:"min_wires"`
}

// Default drawing area: a B-size landscape sheet, 17000 x 11000 mils in
// hundredths of a mil
const (
	DefaultMaxX      = 1700000
	DefaultMaxY      = 1100000
	DefaultTolerance = 5
)

// DefaultExpectations returns expectations with no block, page or instance
// checks and the default tolerance and drawing area
func DefaultExpectations() Expectations {
	return Expectations{
		Tolerance: DefaultTolerance,
		Bounds:    Bounds{MaxX: DefaultMaxX, MaxY: DefaultMaxY},
	}
}

// LoadExpectations reads expectations from a yaml, json or toml file
func LoadExpectations(path string) (Expectations, error) {
	v := viper.New()
	v.SetConfigFile(path)

	def := DefaultExpectations()
	v.SetDefault("tolerance", def.Tolerance)
	v.SetDefault("bounds.max_x", def.Bounds.MaxX)
	v.SetDefault("bounds.max_y", def.Bounds.MaxY)
	v.SetDefault("min_wires", 0)

	if err := v.ReadInConfig(); err != nil {
		return Expectations{}, fmt.Errorf("failed to read audit expectations: %w", err)
	}

	var exp Expectations
	if err := v.Unmarshal(&exp); err != nil {
		return Expectations{}, fmt.Errorf("failed to decode audit expectations: %w", err)
	}

	if exp.Tolerance < 0 {
		return Expectations{}, fmt.Errorf("tolerance must be non-negative, got %d", exp.Tolerance)
	}
	for i, b := range exp.Blocks {
		if b.Name == "" {
			return Expectations{}, fmt.Errorf("blocks[%d]: name is required", i)
		}
	}
	for i, inst := range exp.Instances {
		if inst.RefDes == "" {
			return Expectations{}, fmt.Errorf("instances[%d]: refdes is required", i)
		}
	}
	return exp, nil
}
