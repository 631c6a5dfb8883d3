package agent

import (
	stderrors "errors"
	"regexp"
	"strings"
)

// ErrMalformedOutput 模型输出既不是工具调用也不是最终回答。
var ErrMalformedOutput = stderrors.New("could not parse model output")

// Decision is one parsed reasoning step.
type Decision struct {
	Thought     string
	Action      string
	ActionInput string
	FinalAnswer string
	Final       bool
}

var (
	actionRe      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[ \t]*(.*?)[ \t]*\n\s*Action\s*\d*\s*Input\s*\d*\s*:[ \t]*(.*)`)
	actionStartRe = regexp.MustCompile(`Action\s*\d*\s*:`)
	observationRe = regexp.MustCompile(`\n\s*Observation\s*:`)
)

const finalAnswerMarker = "Final Answer:"

// ParseDecision parses the Thought/Action/Action Input/Final Answer format.
//
// 模型有时会自行编造 Observation，截断到第一个 Observation 之前。
func ParseDecision(text string) (*Decision, error) {
	if loc := observationRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}

	finalIdx := strings.Index(text, finalAnswerMarker)
	actionLoc := actionStartRe.FindStringIndex(text)

	if finalIdx >= 0 && (actionLoc == nil || finalIdx < actionLoc[0]) {
		answer := strings.TrimSpace(text[finalIdx+len(finalAnswerMarker):])
		if answer == "" {
			return nil, ErrMalformedOutput
		}
		return &Decision{
			Thought:     thought(text[:finalIdx]),
			FinalAnswer: answer,
			Final:       true,
		}, nil
	}

	if actionLoc == nil {
		return nil, ErrMalformedOutput
	}
	m := actionRe.FindStringSubmatch(text[actionLoc[0]:])
	if m == nil {
		return nil, ErrMalformedOutput
	}
	action := strings.Trim(strings.TrimSpace(m[1]), "[]`*\"")
	input := strings.TrimSpace(m[2])
	if action == "" {
		return nil, ErrMalformedOutput
	}
	return &Decision{
		Thought:     thought(text[:actionLoc[0]]),
		Action:      action,
		ActionInput: input,
	}, nil
}

func thought(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Thought:")
	return strings.TrimSpace(s)
}
