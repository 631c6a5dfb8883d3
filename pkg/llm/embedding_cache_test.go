package llm

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	texts []string
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.texts = append(c.texts, texts...)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func (c *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := c.Embed(ctx, []string{text})
	return out[0], err
}

func (c *countingEmbedder) Name() string { return "counting" }

func setupTestRedis(t *testing.T) *goredis.Client {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379", DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}
	t.Cleanup(func() {
		_ = client.FlushDB(context.Background()).Err()
		_ = client.Close()
	})
	return client
}

func TestCachedEmbeddingWithoutRedis(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, nil, nil)

	_, err := c.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbeddingBatchPartialHit(t *testing.T) {
	rdb := setupTestRedis(t)
	inner := &countingEmbedder{}
	c := NewCachedEmbeddingProvider(inner, rdb, nil)
	ctx := context.Background()

	_, err := c.EmbedSingle(ctx, "alpha")
	require.NoError(t, err)

	out, err := c.Embed(ctx, []string{"alpha", "be"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{5}, {2}}, out)
	// 第二次只请求未命中的文本
	assert.Equal(t, []string{"alpha", "be"}, inner.texts)
}
