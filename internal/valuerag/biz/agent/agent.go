// Package agent implements the tool-using answering loop.
//
// 状态机：Thinking -> ToolExecuting -> ... -> Done，迭代次数有硬上限。
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/logger"

	"github.com/kart-io/valuerag/internal/pkg/textutil"
	"github.com/kart-io/valuerag/internal/valuerag/biz"
	"github.com/kart-io/valuerag/pkg/llm"
	"github.com/kart-io/valuerag/pkg/utils/errors"
)

const systemPrompt = `Assistant answers questions about value investing using the knowledge base built from the "Invertir Desde Cero" YouTube videos.

Assistant must ALWAYS call the rag_answer tool before answering any factual question, and must base the answer on what the tool returned. When rag_answer returns "` + biz.RefusalSentence + `", the Final Answer must be exactly that sentence.

Assistant may ingest a new video when the user provides a YouTube URL, transcribe a local audio file when given a path, or fetch raw context with the retriever tool.`

const formatInstructions = `To use a tool, use the following format:

Thought: Do I need to use a tool? Yes
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action

When you have a response for the Human, or if you do not need to use a tool, you MUST use the format:

Thought: Do I need to use a tool? No
Final Answer: [your response here]`

// maxObservationRunes 单条观察结果写入提示词的最大字符数。
const maxObservationRunes = 4000

// Config controls the loop bounds.
type Config struct {
	MaxIterations   int
	MaxParseRetries int
	// MaxPromptTokens 0 表示不裁剪历史。
	MaxPromptTokens int
}

// Step is one executed action or rejected output.
type Step struct {
	Thought     string `json:"thought,omitempty"`
	Action      string `json:"action,omitempty"`
	ActionInput string `json:"action_input,omitempty"`
	Observation string `json:"observation"`
}

// Answer is the result of one agent invocation.
type Answer struct {
	SessionID string `json:"session_id"`
	Answer    string `json:"answer"`
	Steps     []Step `json:"steps,omitempty"`
}

// Agent runs the reasoning loop over a fixed tool set.
type Agent struct {
	chat     llm.ChatProvider
	sessions SessionStore
	tools    map[string]Tool
	order    []string
	tokens   biz.TokenCounter
	config   Config
}

// New creates an Agent. tokens 可以为 nil。
func New(chat llm.ChatProvider, sessions SessionStore, tokens biz.TokenCounter, config Config, tools ...Tool) *Agent {
	if config.MaxIterations <= 0 {
		config.MaxIterations = 6
	}
	if config.MaxParseRetries <= 0 {
		config.MaxParseRetries = 3
	}
	a := &Agent{
		chat:     chat,
		sessions: sessions,
		tools:    make(map[string]Tool, len(tools)),
		tokens:   tokens,
		config:   config,
	}
	for _, t := range tools {
		a.tools[t.Name()] = t
		a.order = append(a.order, t.Name())
	}
	return a
}

// Ask answers question within the given session, creating a session when
// sessionID is empty.
func (a *Agent) Ask(ctx context.Context, sessionID, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.ErrInvalidRequest.WithMessage("query is empty")
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}

	history, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		logger.Warnw("Failed to load session, continuing without history", "session_id", sessionID, "error", err.Error())
		history = nil
	}

	var (
		steps       []Step
		parseErrors int
	)
	for iter := 0; iter < a.config.MaxIterations; iter++ {
		prompt := a.buildPrompt(history, question, steps)
		output, err := a.chat.Generate(ctx, prompt, systemPrompt)
		if err != nil {
			return nil, errors.ErrLLMUnavailable.WithCause(err)
		}

		decision, err := ParseDecision(output)
		if err != nil {
			parseErrors++
			logger.Debugw("Malformed agent output", "session_id", sessionID, "attempt", parseErrors)
			if parseErrors > a.config.MaxParseRetries {
				return nil, errors.ErrAgentStuck.WithMessagef("model produced %d malformed outputs", parseErrors)
			}
			steps = append(steps, Step{
				Thought:     strings.TrimSpace(output),
				Observation: "Invalid Format: respond with either 'Action:' and 'Action Input:' lines, or a 'Final Answer:' line.",
			})
			continue
		}
		parseErrors = 0

		if decision.Final {
			answer := biz.NormalizeAnswer(decision.FinalAnswer)
			if err := a.sessions.Append(ctx, sessionID, Turn{Question: question, Answer: answer}); err != nil {
				logger.Warnw("Failed to save session turn", "session_id", sessionID, "error", err.Error())
			}
			logger.Infow("Agent answered", "session_id", sessionID, "steps", len(steps), "iterations", iter+1)
			return &Answer{SessionID: sessionID, Answer: answer, Steps: steps}, nil
		}

		steps = append(steps, Step{
			Thought:     decision.Thought,
			Action:      decision.Action,
			ActionInput: decision.ActionInput,
			Observation: a.execute(ctx, decision),
		})
	}

	return nil, errors.ErrAgentStuck.WithMessagef("no final answer after %d iterations", a.config.MaxIterations)
}

// execute 运行工具，错误作为观察结果返回给模型而不是中断循环。
func (a *Agent) execute(ctx context.Context, d *Decision) string {
	tool, ok := a.tools[d.Action]
	if !ok {
		return fmt.Sprintf("%s is not a valid tool, try one of [%s].", d.Action, strings.Join(a.order, ", "))
	}

	logger.Debugw("Running tool", "tool", tool.Name())
	out, err := tool.Run(ctx, d.ActionInput)
	if err != nil {
		logger.Warnw("Tool failed", "tool", tool.Name(), "error", err.Error())
		return "Error: " + errors.FromError(err).Message("en") + describeCause(err)
	}
	return textutil.TruncateString(out, maxObservationRunes)
}

func describeCause(err error) string {
	if e := errors.FromError(err); e.Cause() != nil {
		return " (" + e.Cause().Error() + ")"
	}
	return ""
}

func (a *Agent) buildPrompt(history []Turn, question string, steps []Step) string {
	for {
		prompt := a.renderPrompt(history, question, steps)
		if a.tokens == nil || a.config.MaxPromptTokens <= 0 || len(history) == 0 ||
			a.tokens.Count(systemPrompt+prompt) <= a.config.MaxPromptTokens {
			return prompt
		}
		history = history[1:]
	}
}

func (a *Agent) renderPrompt(history []Turn, question string, steps []Step) string {
	var b strings.Builder

	b.WriteString("TOOLS:\n------\nAssistant has access to the following tools:\n\n")
	for _, name := range a.order {
		fmt.Fprintf(&b, "%s: %s\n", name, a.tools[name].Description())
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, formatInstructions, strings.Join(a.order, ", "))
	b.WriteString("\n\nBegin!\n\nPrevious conversation history:\n")
	for _, t := range history {
		fmt.Fprintf(&b, "Human: %s\nAI: %s\n", t.Question, t.Answer)
	}
	fmt.Fprintf(&b, "\nNew input: %s\n", question)

	for _, s := range steps {
		if s.Action == "" {
			fmt.Fprintf(&b, "%s\nObservation: %s\n", s.Thought, s.Observation)
			continue
		}
		fmt.Fprintf(&b, "Thought: %s\nAction: %s\nAction Input: %s\nObservation: %s\n",
			s.Thought, s.Action, s.ActionInput, s.Observation)
	}
	b.WriteString("Thought:")
	return b.String()
}
