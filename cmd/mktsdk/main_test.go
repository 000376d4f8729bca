package main

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnlabs/marketplace-sdk/fixtures"
	"github.com/fxnlabs/marketplace-sdk/internal/devregistry"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

func writeConfig(t *testing.T, registryURL string) string {
	t.Helper()
	manifest, err := devregistry.LoadManifestFS(fixtures.FS, fixtures.RegistryManifestPath)
	require.NoError(t, err)
	if registryURL == "" {
		server := httptest.NewServer(devregistry.NewServer(manifest).Handler())
		t.Cleanup(server.Close)
		registryURL = server.URL
	}

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := fmt.Sprintf("logger:\n  verbosity: error\nregistry:\n  url: %q\nnetwork: sepolia\n", registryURL)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cliApp := newApp()
	cliApp.Writer = &out
	cliApp.ErrWriter = &out
	err := cliApp.Run(append([]string{"mktsdk"}, args...))
	return out.String(), err
}

func checksum(address string) string {
	return common.HexToAddress(address).Hex()
}

func TestResolveCommand(t *testing.T) {
	configPath := writeConfig(t, "")

	t.Run("registered address", func(t *testing.T) {
		out, err := run(t, "--config", configPath, "resolve", "Exchange", "Auction")
		require.NoError(t, err)
		assert.Contains(t, out, "Exchange\tsepolia\t"+checksum("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")+"\t3 methods")
		assert.Contains(t, out, "Auction\tsepolia\t"+checksum("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"))
	})

	t.Run("network override", func(t *testing.T) {
		out, err := run(t, "--config", configPath, "--network", "1", "resolve", "Exchange")
		require.NoError(t, err)
		assert.Contains(t, out, "Exchange\tethereum\t"+checksum("0x1111111111111111111111111111111111111111"))
	})

	t.Run("invalid explicit address", func(t *testing.T) {
		_, err := run(t, "--config", configPath, "resolve", "--address", "0x12", "Exchange")
		assert.ErrorIs(t, err, sdkerr.ErrInvalidAddress)
	})

	t.Run("unknown contract", func(t *testing.T) {
		_, err := run(t, "--config", configPath, "resolve", "Nope")
		assert.ErrorIs(t, err, sdkerr.ErrNotFound)
	})
}

func TestPrefetchCommand(t *testing.T) {
	configPath := writeConfig(t, "")

	out, err := run(t, "--config", configPath, "prefetch", "Exchange", "Auction")
	require.NoError(t, err)
	assert.Contains(t, out, "prefetched 2 contracts on sepolia")

	_, err = run(t, "--config", configPath, "prefetch", "Exchange", "Nope")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
}

func TestProbeCommand_RequiresRPC(t *testing.T) {
	configPath := writeConfig(t, "")
	_, err := run(t, "--config", configPath, "probe", "0x5FbDB2315678afecb367f032d93F642f64180aa3")
	assert.ErrorContains(t, err, "rpcProvider")
}

func TestConfigErrors(t *testing.T) {
	t.Run("explicit missing config", func(t *testing.T) {
		_, err := run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "prefetch", "Exchange")
		assert.Error(t, err)
	})

	t.Run("invalid verbosity", func(t *testing.T) {
		configPath := writeConfig(t, "http://127.0.0.1:1")
		_, err := run(t, "--config", configPath, "--verbosity", "loud", "prefetch", "Exchange")
		assert.Error(t, err)
	})

	t.Run("unreachable registry", func(t *testing.T) {
		configPath := writeConfig(t, "http://127.0.0.1:1")
		_, err := run(t, "--config", configPath, "prefetch", "Exchange")
		assert.ErrorIs(t, err, sdkerr.ErrRequestFailed)
	})
}
