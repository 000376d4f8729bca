package sdkerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("wrapped sentinel", func(t *testing.T) {
		err := fmt.Errorf("resolve Exchange: %w", ErrNotFound)
		assert.Equal(t, ErrNotFound, KindOf(err))
	})

	t.Run("request error", func(t *testing.T) {
		err := &RequestError{Endpoint: "GET /v1/abis/abi-1", StatusCode: 429, Kind: ErrRateLimited}
		assert.Equal(t, ErrRateLimited, KindOf(fmt.Errorf("fetch abi: %w", err)))
	})

	t.Run("unclassified", func(t *testing.T) {
		assert.Nil(t, KindOf(errors.New("boom")))
		assert.Nil(t, KindOf(nil))
	})
}

func TestRequestError(t *testing.T) {
	cause := context.DeadlineExceeded
	err := &RequestError{Endpoint: "GET /v1/contracts/Exchange", Kind: ErrTimeout, Err: cause}

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "GET /v1/contracts/Exchange: timeout: context deadline exceeded", err.Error())

	withStatus := &RequestError{Endpoint: "GET /v1/abis/x", StatusCode: 404, Kind: ErrNotFound}
	assert.Equal(t, "GET /v1/abis/x: not found (status 404)", withStatus.Error())
}
