package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fxnlabs/marketplace-sdk/fixtures"
	"github.com/fxnlabs/marketplace-sdk/internal/devregistry"
	"github.com/fxnlabs/marketplace-sdk/pkg/metrics"
	"github.com/fxnlabs/marketplace-sdk/pkg/registry"
	"github.com/fxnlabs/marketplace-sdk/pkg/sdkerr"
)

func newDevRegistry(t *testing.T, opts ...devregistry.Option) *httptest.Server {
	t.Helper()
	manifest, err := devregistry.LoadManifestFS(fixtures.FS, fixtures.RegistryManifestPath)
	require.NoError(t, err)
	server := httptest.NewServer(devregistry.NewServer(manifest, opts...).Handler())
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	t.Run("valid url", func(t *testing.T) {
		c, err := registry.NewClient("https://registry.example.com/")
		require.NoError(t, err)
		assert.NotNil(t, c)
	})

	t.Run("invalid url", func(t *testing.T) {
		for _, u := range []string{"", "registry.example.com", "://bad"} {
			_, err := registry.NewClient(u)
			assert.ErrorIs(t, err, sdkerr.ErrInvalidParameter, u)
		}
	})
}

func TestClient_GetContractMetadata(t *testing.T) {
	server := newDevRegistry(t)
	c, err := registry.NewClient(server.URL)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		md, err := c.GetContractMetadata(context.Background(), "Exchange", 11155111)
		require.NoError(t, err)
		assert.Equal(t, "Exchange", md.LogicalName)
		assert.Equal(t, uint64(11155111), md.Network)
		assert.Equal(t, "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", md.DeployedAddress)
		assert.Equal(t, "abi-1", md.AbiID)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := c.GetContractMetadata(context.Background(), "Exchange", 137)
		assert.ErrorIs(t, err, sdkerr.ErrNotFound)

		var reqErr *sdkerr.RequestError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, http.StatusNotFound, reqErr.StatusCode)
	})
}

func TestClient_GetAbiByID(t *testing.T) {
	server := newDevRegistry(t)
	c, err := registry.NewClient(server.URL)
	require.NoError(t, err)

	desc, err := c.GetAbiByID(context.Background(), "abi-1")
	require.NoError(t, err)
	assert.Equal(t, "abi-1", desc.ID)
	assert.JSONEq(t, fixtures.ExchangeABI, string(desc.ABI))

	_, err = c.GetAbiByID(context.Background(), "abi-404")
	assert.ErrorIs(t, err, sdkerr.ErrNotFound)
}

func TestClient_GetDeployedAddress(t *testing.T) {
	server := newDevRegistry(t)
	c, err := registry.NewClient(server.URL)
	require.NoError(t, err)

	addr, err := c.GetDeployedAddress(context.Background(), "Auction", 11155111)
	require.NoError(t, err)
	assert.Equal(t, "0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB", addr)
}

func TestClient_APIKey(t *testing.T) {
	server := newDevRegistry(t, devregistry.WithAPIKey("secret"))

	anonymous, err := registry.NewClient(server.URL)
	require.NoError(t, err)
	_, err = anonymous.GetAbiByID(context.Background(), "abi-1")
	assert.ErrorIs(t, err, sdkerr.ErrUnauthorized)

	authorized, err := registry.NewClient(server.URL, registry.WithAPIKey("secret"))
	require.NoError(t, err)
	_, err = authorized.GetAbiByID(context.Background(), "abi-1")
	assert.NoError(t, err)
}

func TestClient_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, sdkerr.ErrNotFound},
		{http.StatusUnauthorized, sdkerr.ErrUnauthorized},
		{http.StatusForbidden, sdkerr.ErrUnauthorized},
		{http.StatusTooManyRequests, sdkerr.ErrRateLimited},
		{http.StatusGatewayTimeout, sdkerr.ErrTimeout},
		{http.StatusRequestTimeout, sdkerr.ErrTimeout},
		{http.StatusInternalServerError, sdkerr.ErrRequestFailed},
		{http.StatusBadGateway, sdkerr.ErrRequestFailed},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			c, err := registry.NewClient(server.URL)
			require.NoError(t, err)
			_, err = c.GetAbiByID(context.Background(), "abi-1")
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.want, sdkerr.KindOf(err))
		})
	}
}

func TestClient_MalformedBodies(t *testing.T) {
	bodies := map[string]string{
		"/v1/abis/not-json":       `{"id":`,
		"/v1/abis/not-array":      `{"id":"x","abi":{"type":"function"}}`,
		"/v1/abis/missing":        `{"id":"x"}`,
		"/v1/contracts/NoAbi":     `{"logicalName":"NoAbi","deployedAddress":"0x00"}`,
		"/v1/contracts/X/address": `{"address":""}`,
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	c, err := registry.NewClient(server.URL)
	require.NoError(t, err)

	for _, id := range []string{"not-json", "not-array", "missing"} {
		_, err = c.GetAbiByID(context.Background(), id)
		assert.ErrorIs(t, err, sdkerr.ErrRequestFailed, id)
	}
	_, err = c.GetContractMetadata(context.Background(), "NoAbi", 1)
	assert.ErrorIs(t, err, sdkerr.ErrRequestFailed)
	_, err = c.GetDeployedAddress(context.Background(), "X", 1)
	assert.ErrorIs(t, err, sdkerr.ErrRequestFailed)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c, err := registry.NewClient(server.URL, registry.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.GetAbiByID(context.Background(), "abi-1")
	assert.ErrorIs(t, err, sdkerr.ErrTimeout)
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c, err := registry.NewClient(url)
	require.NoError(t, err)
	_, err = c.GetAbiByID(context.Background(), "abi-1")
	assert.ErrorIs(t, err, sdkerr.ErrRequestFailed)
}

func TestClient_Metrics(t *testing.T) {
	server := newDevRegistry(t)
	m := metrics.New(prometheus.NewRegistry())
	c, err := registry.NewClient(server.URL, registry.WithMetrics(m))
	require.NoError(t, err)

	_, err = c.GetAbiByID(context.Background(), "abi-1")
	require.NoError(t, err)
	_, _ = c.GetAbiByID(context.Background(), "abi-404")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RegistryRequests.WithLabelValues("200", "get")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RegistryRequests.WithLabelValues("404", "get")))
}
