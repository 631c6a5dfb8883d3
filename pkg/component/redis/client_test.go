package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	options "github.com/kart-io/valuerag/pkg/options/redis"
)

func TestNewWithNilOptions(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestNewWithInvalidOptions(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = -1
	_, err := New(opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid redis options")
}

func TestNewUnreachable(t *testing.T) {
	opts := options.NewOptions()
	opts.Port = 1
	opts.DialTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewWithContext(ctx, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping redis")
}

func TestNewAndHealth(t *testing.T) {
	opts := options.NewOptions()
	opts.Database = 15

	client, err := New(opts)
	if err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}
	defer func() { _ = client.Close() }()

	assert.NoError(t, client.Health()())
	assert.Equal(t, 15, client.Options().Database)
}
