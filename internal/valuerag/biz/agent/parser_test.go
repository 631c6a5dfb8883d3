package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionAction(t *testing.T) {
	d, err := ParseDecision(" Do I need to use a tool? Yes\nAction: rag_answer\nAction Input: What is a moat?\n")
	require.NoError(t, err)
	assert.False(t, d.Final)
	assert.Equal(t, "rag_answer", d.Action)
	assert.Equal(t, "What is a moat?", d.ActionInput)
	assert.Equal(t, "Do I need to use a tool? Yes", d.Thought)
}

func TestParseDecisionTruncatesHallucinatedObservation(t *testing.T) {
	text := "Thought: Do I need to use a tool? Yes\nAction: retriever\nAction Input: margen de seguridad\nObservation: made up\nThought: Do I need to use a tool? No\nFinal Answer: invented"
	d, err := ParseDecision(text)
	require.NoError(t, err)
	assert.Equal(t, "retriever", d.Action)
	assert.Equal(t, "margen de seguridad", d.ActionInput)
}

func TestParseDecisionFinal(t *testing.T) {
	d, err := ParseDecision("Do I need to use a tool? No\nFinal Answer: Buy wonderful businesses at fair prices.\n")
	require.NoError(t, err)
	assert.True(t, d.Final)
	assert.Equal(t, "Buy wonderful businesses at fair prices.", d.FinalAnswer)
}

func TestParseDecisionActionDecorations(t *testing.T) {
	d, err := ParseDecision("Action: [speech_to_text]\nAction Input: \"/tmp/q.mp3\"")
	require.NoError(t, err)
	assert.Equal(t, "speech_to_text", d.Action)
	assert.Equal(t, `"/tmp/q.mp3"`, d.ActionInput)
}

func TestParseDecisionMalformed(t *testing.T) {
	for _, text := range []string{
		"",
		"I think the answer is 42.",
		"Action: rag_answer",
		"Final Answer:   ",
		"Action: \nAction Input: x",
	} {
		_, err := ParseDecision(text)
		assert.ErrorIs(t, err, ErrMalformedOutput, text)
	}
}
