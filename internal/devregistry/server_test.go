package devregistry

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnlabs/marketplace-sdk/fixtures"
	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/registry"
)

func loadFixtureManifest(t *testing.T) *Manifest {
	t.Helper()
	m, err := LoadManifestFS(fixtures.FS, fixtures.RegistryManifestPath)
	require.NoError(t, err)
	return m
}

func TestLoadManifestFS(t *testing.T) {
	m := loadFixtureManifest(t)
	assert.Len(t, m.Contracts, 5)
	assert.Contains(t, m.ABIs, "abi-1")
	assert.Contains(t, m.ABIs, "abi-2")
	assert.Equal(t, "[]", m.ABIs["abi-empty"])
}

func TestLoadManifestFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Exchange.json"), []byte(fixtures.ExchangeABI), 0600))
	manifest := `
contracts:
  - name: Exchange
    chainId: 31337
    address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
    abiId: exchange
abiFiles:
  exchange: Exchange.json
`
	path := filepath.Join(dir, "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0600))

	m, err := LoadManifestFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, fixtures.ExchangeABI, m.ABIs["exchange"])
}

func TestParseManifestErrors(t *testing.T) {
	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseManifest([]byte("contracts: [unterminated"), nil)
		assert.Error(t, err)
	})

	t.Run("unknown abi reference", func(t *testing.T) {
		_, err := ParseManifest([]byte(`
contracts:
  - name: Exchange
    chainId: 1
    abiId: missing
`), nil)
		assert.ErrorContains(t, err, "unknown abi")
	})

	t.Run("invalid abi json", func(t *testing.T) {
		_, err := ParseManifest([]byte(`
abis:
  bad: "[{"
`), nil)
		assert.ErrorContains(t, err, "not valid JSON")
	})

	t.Run("file without loader", func(t *testing.T) {
		_, err := ParseManifest([]byte(`
abiFiles:
  a: a.json
`), nil)
		assert.Error(t, err)
	})
}

func TestServer(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	server := httptest.NewServer(NewServer(loadFixtureManifest(t), WithMetrics(m)).Handler())
	defer server.Close()

	t.Run("metadata", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/contracts/Exchange?network=11155111")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var md registry.ContractMetadata
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&md))
		assert.Equal(t, registry.ContractMetadata{
			LogicalName:     "Exchange",
			Network:         11155111,
			DeployedAddress: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			AbiID:           "abi-1",
		}, md)
	})

	t.Run("address", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/contracts/Auction/address?network=11155111")
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", body["address"])
	})

	t.Run("abi", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/abis/abi-2")
		require.NoError(t, err)
		defer resp.Body.Close()
		var desc registry.AbiDescriptor
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&desc))
		assert.Equal(t, "abi-2", desc.ID)
		assert.JSONEq(t, fixtures.AuctionABI, string(desc.ABI))
	})

	t.Run("unknown deployment", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/contracts/Exchange?network=137")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.EndpointResponses.WithLabelValues("/v1/contracts/{name}", "404")))
	})

	t.Run("missing network", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/v1/contracts/Exchange")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServerAPIKey(t *testing.T) {
	server := httptest.NewServer(NewServer(loadFixtureManifest(t), WithAPIKey("secret")).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/v1/abis/abi-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/abis/abi-1", nil)
	require.NoError(t, err)
	req.Header.Set(registry.APIKeyHeader, "secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
