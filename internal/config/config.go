package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fxnlabs/marketplace-sdk/pkg/batch"
	"github.com/fxnlabs/marketplace-sdk/pkg/cache"
	"github.com/fxnlabs/marketplace-sdk/pkg/contracts"
	"github.com/fxnlabs/marketplace-sdk/pkg/registry"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	RpcProvider string            `yaml:"rpcProvider"`
	Network     string            `yaml:"network"`
	Networks    map[string]uint64 `yaml:"networks"`
	Registry    struct {
		URL     string        `yaml:"url"`
		APIKey  string        `yaml:"apiKey"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"registry"`
	Cache struct {
		ABITTL        time.Duration `yaml:"abiTTL"`
		GCTime        time.Duration `yaml:"gcTime"`
		Size          int           `yaml:"size"`
		StaleIfError  bool          `yaml:"staleIfError"`
		SweepInterval time.Duration `yaml:"sweepInterval"`
	} `yaml:"cache"`
	Batch struct {
		MaxConcurrency  int  `yaml:"maxConcurrency"`
		ContinueOnError bool `yaml:"continueOnError"`
	} `yaml:"batch"`
	Metrics struct {
		ListenAddress string `yaml:"listenAddress"`
	} `yaml:"metrics"`
	DevRegistry struct {
		ListenAddress string `yaml:"listenAddress"`
		ManifestPath  string `yaml:"manifestPath"`
		APIKey        string `yaml:"apiKey"`
	} `yaml:"devRegistry"`
}

// Default returns the configuration used for keys a file leaves out.
func Default() *Config {
	var c Config
	c.Logger.Verbosity = "info"
	c.Network = "sepolia"
	c.Registry.Timeout = registry.DefaultTimeout
	c.Cache.ABITTL = contracts.DefaultABITTL
	c.Cache.GCTime = cache.DefaultGCTime
	c.Cache.Size = cache.DefaultSize
	c.Cache.StaleIfError = true
	c.Cache.SweepInterval = time.Minute
	c.Batch.MaxConcurrency = batch.DefaultMaxConcurrency
	c.Batch.ContinueOnError = true
	c.DevRegistry.ListenAddress = ":8090"
	return &c
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the values the SDK would otherwise reject at first use.
func (c *Config) Validate() error {
	if c.Batch.MaxConcurrency <= 0 {
		return fmt.Errorf("batch.maxConcurrency must be positive: %w", sdkerr.ErrInvalidParameter)
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive: %w", sdkerr.ErrInvalidParameter)
	}
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("registry.timeout must not be negative: %w", sdkerr.ErrInvalidParameter)
	}
	return nil
}

// BatchOptions converts the batch section into engine options.
func (c *Config) BatchOptions() batch.Options {
	return batch.Options{
		ContinueOnError: c.Batch.ContinueOnError,
		MaxConcurrency:  c.Batch.MaxConcurrency,
	}
}
