package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedAdmin is an administrator provisioned at startup when absent.
type SeedAdmin struct {
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

// PortalFile holds deployment settings that are awkward to express as env vars.
type PortalFile struct {
	FirmName    string      `yaml:"firm_name"`
	TablePrefix string      `yaml:"table_prefix"`
	SeedAdmins  []SeedAdmin `yaml:"seed_admins"`
}

// DefaultPortalFile is used when no portal file is present.
func DefaultPortalFile() *PortalFile {
	return &PortalFile{FirmName: "Grupo Kali Consultores"}
}

// LoadPortalFile reads the YAML portal file. A missing file yields the defaults.
func LoadPortalFile(path string) (*PortalFile, error) {
	pf := DefaultPortalFile()
	if path == "" {
		return pf, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pf, nil
		}
		return nil, fmt.Errorf("failed to read portal file: %w", err)
	}

	if err := yaml.Unmarshal(data, pf); err != nil {
		return nil, fmt.Errorf("failed to parse portal file: %w", err)
	}
	if pf.FirmName == "" {
		pf.FirmName = DefaultPortalFile().FirmName
	}
	for i := range pf.SeedAdmins {
		pf.SeedAdmins[i].Email = strings.ToLower(strings.TrimSpace(pf.SeedAdmins[i].Email))
		pf.SeedAdmins[i].Role = strings.ToUpper(strings.TrimSpace(pf.SeedAdmins[i].Role))
	}
	return pf, nil
}
