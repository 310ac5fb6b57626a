package authz

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// PrincipalConfig seeds one principal in the registry file.
type PrincipalConfig struct {
	Identity   string   `yaml:"identity" validate:"required"`
	Credential string   `yaml:"credential" validate:"required"`
	Roles      []string `yaml:"roles" validate:"dive,required"`
	Active     *bool    `yaml:"active"`
}

// RoleConfig seeds one role in the registry file.
type RoleConfig struct {
	Name         string   `yaml:"name" validate:"required"`
	Capabilities []string `yaml:"capabilities" validate:"min=1,dive,required"`
}

// Config holds the static registry data the evaluator is built from.
type Config struct {
	Principals []PrincipalConfig `yaml:"principals" validate:"unique=Identity,dive"`
	Roles      []RoleConfig      `yaml:"roles" validate:"unique=Name,dive"`
}

// LoadConfig reads and validates a registry file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("authz: read registry: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates raw registry YAML.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("authz: parse registry: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("authz: validate registry: %w", err)
	}
	return cfg, nil
}

// IsActive resolves the optional active flag; principals default to active.
func (p PrincipalConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}
