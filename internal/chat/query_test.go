package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

func questions(n int) []completion.Message {
	msgs := make([]completion.Message, n)
	for i := range msgs {
		msgs[i] = completion.UserMessage(fmt.Sprintf("question %d", i))
	}
	return msgs
}

func TestAdaptiveQueryStopsOnFirstGroundedAttempt(t *testing.T) {
	env := newTestEnv(t)
	env.completer.responses = []*completion.Response{
		respWith("broad answer", 0),
		respWith("narrow answer", 2),
		respWith("never issued", 5),
	}

	best, err := env.processor.adaptiveQuery(context.Background(), questions(12), "idx", "persona")
	require.NoError(t, err)

	assert.Equal(t, "narrow answer", best.Choices[0].Content)
	assert.Len(t, best.Choices[0].Citations, 2)
	assert.Len(t, env.completer.calls, 2, "third window must not be tried once grounding succeeds")
}

func TestAdaptiveQueryShrinksWindows(t *testing.T) {
	env := newTestEnv(t)
	env.completer.responses = []*completion.Response{respWith("answer", 0)}

	_, err := env.processor.adaptiveQuery(context.Background(), questions(12), "idx", "persona")
	require.NoError(t, err)

	require.Len(t, env.completer.calls, 3)
	assert.Len(t, env.completer.calls[0].Messages, 10)
	assert.Len(t, env.completer.calls[1].Messages, 5)
	assert.Len(t, env.completer.calls[2].Messages, 1)
	for _, call := range env.completer.calls {
		assert.Equal(t, "idx", call.IndexName)
		assert.Equal(t, "persona", call.RoleInformation)
	}
}

func TestAdaptiveQueryExhaustionKeepsFirstAttempt(t *testing.T) {
	env := newTestEnv(t)
	env.completer.responses = []*completion.Response{
		respWith("first", 0),
		respWith("second", 0),
		respWith("third", 0),
	}

	best, err := env.processor.adaptiveQuery(context.Background(), questions(12), "idx", "persona")
	require.NoError(t, err)

	assert.Len(t, env.completer.calls, 3)
	assert.Equal(t, "first", best.Choices[0].Content)
}

func TestAdaptiveQueryNoChoices(t *testing.T) {
	env := newTestEnv(t)
	env.completer.responses = []*completion.Response{{}}

	_, err := env.processor.adaptiveQuery(context.Background(), questions(3), "idx", "persona")
	assert.ErrorIs(t, err, ErrNoCompletion)
	assert.Len(t, env.completer.calls, 3)
}

func TestAdaptiveQueryPropagatesCompleterError(t *testing.T) {
	env := newTestEnv(t)
	env.completer.err = fmt.Errorf("upstream down")

	_, err := env.processor.adaptiveQuery(context.Background(), questions(3), "idx", "persona")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoCompletion)
	assert.Len(t, env.completer.calls, 1)
}

func TestSelectBestTieResolvesToEarlierAttempt(t *testing.T) {
	first := respWith("first", 1)
	second := respWith("second", 1)

	best := selectBest([]*completion.Response{first, second})
	assert.Same(t, first, best)
}

func TestSelectBestPrefersMoreCitations(t *testing.T) {
	attempts := []*completion.Response{
		respWith("a", 1),
		respWith("b", 4),
		respWith("c", 2),
	}
	assert.Equal(t, "b", selectBest(attempts).Choices[0].Content)
}

func TestSelectBestEmpty(t *testing.T) {
	assert.Nil(t, selectBest(nil))
}

func TestLastN(t *testing.T) {
	msgs := questions(4)

	assert.Len(t, lastN(msgs, 2), 2)
	assert.Equal(t, msgs[2:], lastN(msgs, 2))
	assert.Equal(t, msgs, lastN(msgs, 10))
	assert.Equal(t, msgs, lastN(msgs, -1))
}
