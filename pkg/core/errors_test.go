package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrovista/farmsight-go/pkg/core"
)

func TestClientError(t *testing.T) {
	err := core.NewClientError("ListFields", core.ErrNotFound)
	assert.Equal(t, "farmsight: ListFields: resource not found", err.Error())
	assert.ErrorIs(t, err, core.ErrNotFound)

	var clientErr *core.ClientError
	assert.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "ListFields", clientErr.Op)
}

func TestClientError_WrapsArbitraryErrors(t *testing.T) {
	inner := errors.New("connection reset")
	err := core.NewClientError("Login", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "farmsight: Login: connection reset", err.Error())
}

func TestNewClientError_NilPassthrough(t *testing.T) {
	assert.Nil(t, core.NewClientError("ListFields", nil))
}
