package agent

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/valuerag/pkg/utils/json"
)

// Turn is one question/answer exchange.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SessionStore keeps a bounded conversation window per session.
type SessionStore interface {
	// Load 返回会话的最近若干轮对话，按时间升序；未知会话返回空。
	Load(ctx context.Context, sessionID string) ([]Turn, error)
	// Append 追加一轮对话，超出窗口的最早对话被丢弃。
	Append(ctx context.Context, sessionID string, turn Turn) error
}

// NewSessionID returns a new lexicographically sortable session id.
func NewSessionID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// MemoryStore is an in-process SessionStore. Sessions are evicted least
// recently used first once maxSessions is reached, and expire ttl after their
// last turn.
type MemoryStore struct {
	mu       sync.Mutex
	window   int
	sessions *expirable.LRU[string, []Turn]
}

// NewMemoryStore creates a MemoryStore keeping window turns per session.
// maxSessions 或 ttl 为 0 时不做对应限制。
func NewMemoryStore(window, maxSessions int, ttl time.Duration) *MemoryStore {
	if window <= 0 {
		window = 5
	}
	if maxSessions < 0 {
		maxSessions = 0
	}
	return &MemoryStore{window: window, sessions: expirable.NewLRU[string, []Turn](maxSessions, nil, ttl)}
}

// Load implements SessionStore.
func (s *MemoryStore) Load(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, _ := s.sessions.Get(sessionID)
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

// Append implements SessionStore.
func (s *MemoryStore) Append(_ context.Context, sessionID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns, _ := s.sessions.Get(sessionID)
	turns = append(turns, turn)
	if len(turns) > s.window {
		turns = append([]Turn(nil), turns[len(turns)-s.window:]...)
	}
	s.sessions.Add(sessionID, turns)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	return s.sessions.Len()
}

// RedisStore keeps sessions in Redis lists trimmed to the window.
type RedisStore struct {
	client *goredis.Client
	window int
	ttl    time.Duration
	prefix string
}

// NewRedisStore creates a RedisStore. ttl 为 0 时会话不过期。
func NewRedisStore(client *goredis.Client, window int, ttl time.Duration) *RedisStore {
	if window <= 0 {
		window = 5
	}
	return &RedisStore{client: client, window: window, ttl: ttl, prefix: "valuerag:session:"}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Load implements SessionStore.
func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]Turn, error) {
	vals, err := s.client.LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.UnmarshalString(v, &t); err != nil {
			continue
		}
		turns = append(turns, t)
	}
	return turns, nil
}

// Append implements SessionStore.
func (s *RedisStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	key := s.key(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}
