package biz

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/kart-io/valuerag/internal/valuerag/model"
	"github.com/kart-io/valuerag/internal/valuerag/store"
	"github.com/kart-io/valuerag/pkg/llm"
)

const fakeDim = 32

// fakeEmbedder 词袋哈希向量，相同文本得到相同向量。
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) vector(text string) []float32 {
	v := make([]float32, fakeDim)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		v[h.Sum32()%fakeDim]++
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	out, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

// memoryStore 内存向量库，用真实的余弦相似度排序。
type memoryStore struct {
	mu          sync.Mutex
	collections map[string]int
	records     map[string][]*store.Record
	insertErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{collections: map[string]int{}, records: map[string][]*store.Record{}}
}

func (s *memoryStore) EnsureCollection(_ context.Context, cfg *store.CollectionConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[cfg.Name]; ok {
		return false, nil
	}
	s.collections[cfg.Name] = cfg.Dimension
	return true, nil
}

func (s *memoryStore) Insert(_ context.Context, collection string, records []*store.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.records[collection] = append(s.records[collection], records...)
	return len(records), nil
}

func (s *memoryStore) Search(_ context.Context, collection string, embedding []float32, topK int, filter model.Filter) ([]*model.ScoredChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.ScoredChunk
	for _, r := range s.records[collection] {
		if !filter.Matches(r.Metadata) {
			continue
		}
		out = append(out, &model.ScoredChunk{
			Chunk: r.Chunk,
			Score: float32(cosine(embedding, r.Embedding)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (s *memoryStore) DeleteBySource(_ context.Context, collection, sourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept []*store.Record
	var n int64
	for _, r := range s.records[collection] {
		if r.SourceID == sourceID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	s.records[collection] = kept
	return n, nil
}

func (s *memoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records[collection])), nil
}

func (s *memoryStore) countSource(collection, sourceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.records[collection] {
		if r.SourceID == sourceID {
			n++
		}
	}
	return n
}

// scriptedChat 按顺序返回预设回复，并记录收到的提示词。
type scriptedChat struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	systems   []string
}

func (c *scriptedChat) next() (string, error) {
	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", fmt.Errorf("scriptedChat: no more responses")
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r, nil
}

func (c *scriptedChat) Chat(_ context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sb strings.Builder
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			c.systems = append(c.systems, m.Content)
			continue
		}
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	c.prompts = append(c.prompts, sb.String())
	return c.next()
}

func (c *scriptedChat) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return c.Chat(ctx, llm.Messages(systemPrompt, prompt))
}

func (c *scriptedChat) Name() string { return "scripted" }

func (c *scriptedChat) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
