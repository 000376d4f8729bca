package devregistry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Deployment is one contract deployment served by the dev registry.
type Deployment struct {
	Name    string `yaml:"name"`
	ChainID uint64 `yaml:"chainId"`
	Address string `yaml:"address"`
	AbiID   string `yaml:"abiId"`
}

// Manifest lists deployments and the ABIs they reference. ABIs are given inline
// as JSON strings or as files relative to the manifest.
type Manifest struct {
	Contracts []Deployment      `yaml:"contracts"`
	ABIFiles  map[string]string `yaml:"abiFiles"`
	ABIs      map[string]string `yaml:"abis"`
}

// ParseManifest decodes data and loads ABI files through readFile.
func ParseManifest(data []byte, readFile func(name string) ([]byte, error)) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if m.ABIs == nil {
		m.ABIs = make(map[string]string)
	}

	for id, file := range m.ABIFiles {
		if readFile == nil {
			return nil, fmt.Errorf("abi %q references file %q but no file loader is available", id, file)
		}
		raw, err := readFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read abi %q: %w", id, err)
		}
		m.ABIs[id] = string(raw)
	}

	for id, raw := range m.ABIs {
		if !json.Valid([]byte(raw)) {
			return nil, fmt.Errorf("abi %q is not valid JSON", id)
		}
	}
	for i, d := range m.Contracts {
		if d.Name == "" || d.ChainID == 0 {
			return nil, fmt.Errorf("contract #%d: name and chainId are required", i)
		}
		if _, ok := m.ABIs[d.AbiID]; !ok {
			return nil, fmt.Errorf("contract %s on chain %d references unknown abi %q", d.Name, d.ChainID, d.AbiID)
		}
	}
	return &m, nil
}

// LoadManifestFile reads a manifest from disk. ABI files resolve relative to it.
func LoadManifestFile(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(manifestPath)
	return ParseManifest(data, func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(dir, name)
		}
		return os.ReadFile(name)
	})
}

// LoadManifestFS reads a manifest from fsys. ABI files resolve relative to it.
func LoadManifestFS(fsys fs.FS, manifestPath string) (*Manifest, error) {
	data, err := fs.ReadFile(fsys, manifestPath)
	if err != nil {
		return nil, err
	}
	dir := path.Dir(manifestPath)
	return ParseManifest(data, func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, path.Join(dir, name))
	})
}
