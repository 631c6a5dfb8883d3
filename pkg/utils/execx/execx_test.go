package execx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunFailureIncludesOutput(t *testing.T) {
	if !LookPath("sh") {
		t.Skip("sh not available")
	}
	err := Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sh:")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunSuccess(t *testing.T) {
	if !LookPath("true") {
		t.Skip("true not available")
	}
	require.NoError(t, Run(context.Background(), "true"))
}

func TestOrDefault(t *testing.T) {
	called := false
	r := OrDefault(func(context.Context, string, ...string) error {
		called = true
		return nil
	})
	require.NoError(t, r(context.Background(), "x"))
	assert.True(t, called)
	assert.NotNil(t, OrDefault(nil))
}
