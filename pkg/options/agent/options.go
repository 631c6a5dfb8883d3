// Package agent provides options for the question answering agent.
package agent

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/valuerag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Options contains agent loop and memory configuration.
type Options struct {
	// MaxIterations 单次提问的最大推理轮数。
	MaxIterations int `json:"max-iterations" mapstructure:"max-iterations"`

	// MaxParseRetries 连续格式错误的容忍次数。
	MaxParseRetries int `json:"max-parse-retries" mapstructure:"max-parse-retries"`

	// MemoryWindow 保留的最近对话轮数。
	MemoryWindow int `json:"memory-window" mapstructure:"memory-window"`

	// SessionStore 会话存储: memory 或 redis。
	SessionStore string `json:"session-store" mapstructure:"session-store"`

	// SessionTTL 会话过期时间。
	SessionTTL time.Duration `json:"session-ttl" mapstructure:"session-ttl"`

	// MaxSessions 内存会话存储保留的最大会话数，超出时淘汰最久未使用的会话。
	MaxSessions int `json:"max-sessions" mapstructure:"max-sessions"`

	// MaxPromptTokens 推理提示词的 token 上限，超出时丢弃最早的对话。
	MaxPromptTokens int `json:"max-prompt-tokens" mapstructure:"max-prompt-tokens"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		MaxIterations:   6,
		MaxParseRetries: 3,
		MemoryWindow:    5,
		SessionStore:    SessionStoreMemory,
		SessionTTL:      24 * time.Hour,
		MaxSessions:     10000,
		MaxPromptTokens: 6000,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "agent."
	fs.IntVar(&o.MaxIterations, p+"max-iterations", o.MaxIterations, "Maximum reasoning iterations per question.")
	fs.IntVar(&o.MaxParseRetries, p+"max-parse-retries", o.MaxParseRetries, "Malformed model outputs tolerated per question.")
	fs.IntVar(&o.MemoryWindow, p+"memory-window", o.MemoryWindow, "Conversation turns kept per session.")
	fs.StringVar(&o.SessionStore, p+"session-store", o.SessionStore, "Session store backend (memory, redis).")
	fs.DurationVar(&o.SessionTTL, p+"session-ttl", o.SessionTTL, "Idle session expiry.")
	fs.IntVar(&o.MaxSessions, p+"max-sessions", o.MaxSessions, "Sessions kept by the memory store (0 means unbounded).")
	fs.IntVar(&o.MaxPromptTokens, p+"max-prompt-tokens", o.MaxPromptTokens, "Token budget of the reasoning prompt (0 disables trimming).")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("agent.max-iterations must be positive"))
	}
	if o.MaxParseRetries <= 0 {
		errs = append(errs, fmt.Errorf("agent.max-parse-retries must be positive"))
	}
	if o.MemoryWindow <= 0 {
		errs = append(errs, fmt.Errorf("agent.memory-window must be positive"))
	}
	if o.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("agent.max-sessions must not be negative"))
	}
	if o.SessionStore != SessionStoreMemory && o.SessionStore != SessionStoreRedis {
		errs = append(errs, fmt.Errorf("agent.session-store must be %q or %q", SessionStoreMemory, SessionStoreRedis))
	}
	return errs
}
