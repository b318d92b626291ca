package importer

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedSchema is the top-level YAML structure for a registry seed.
type SeedSchema struct {
	Defaults *DefaultsSeed `yaml:"defaults,omitempty"`
	Users    []UserSeed    `yaml:"users"`
	Nodes    []NodeSeed    `yaml:"nodes"`
}

// DefaultsSeed holds values that cascade to every node and sub-node that
// leaves them unset.
type DefaultsSeed struct {
	Tier    string   `yaml:"tier,omitempty"`
	Members []string `yaml:"members,omitempty"`
}

// UserSeed defines a directory entry. Root cannot be seeded.
type UserSeed struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Role string `yaml:"role"`
}

// NodeSeed defines a node with its sub-nodes and members.
type NodeSeed struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	SubNodes    []SubNodeSeed `yaml:"sub_nodes"`
	// Members nil means the defaults apply; an explicit empty list means
	// no members.
	Members []string `yaml:"members,omitempty"`
}

// SubNodeSeed defines one lockable unit.
type SubNodeSeed struct {
	Name        string `yaml:"name"`
	Tier        string `yaml:"tier,omitempty"`
	Description string `yaml:"description,omitempty"`
}

//go:embed default_seed.yaml
var defaultSeed []byte

// DefaultSeed returns the built-in seed used when no seed file is
// configured.
func DefaultSeed() (*SeedSchema, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads and parses a seed YAML file.
func LoadSeed(path string) (*SeedSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML. Unknown keys are rejected.
func ParseSeed(data []byte) (*SeedSchema, error) {
	var schema SeedSchema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&schema); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}
	return &schema, nil
}
