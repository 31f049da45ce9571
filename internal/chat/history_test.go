package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

func TestLoadContextMapsSendersToRoles(t *testing.T) {
	env := newTestEnv(t)
	env.store.turns = []Turn{
		{Body: "is my warranty valid?", Sender: SenderUser},
		{Body: "yes, until March.", Sender: SenderBot},
	}

	msgs, err := env.processor.loadContext(context.Background(), ParseConversation("conv-1"), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, completion.Message{Role: completion.RoleUser, Content: "is my warranty valid?"}, msgs[0])
	assert.Equal(t, completion.Message{Role: completion.RoleAssistant, Content: "yes, until March."}, msgs[1])
}

func TestLoadContextSubstitutesImageInterpretation(t *testing.T) {
	env := newTestEnv(t)
	env.store.turns = []Turn{
		{Body: "9f2c1a.jpg", Sender: SenderUser, IsImage: true, AuxiliaryContext: "USER IMAGE: a flat tire"},
	}

	msgs, err := env.processor.loadContext(context.Background(), ParseConversation("conv-1"), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	assert.Equal(t, "USER IMAGE: a flat tire", msgs[0].Content,
		"grounding prompts receive the interpretation, never the storage reference")
}

func TestLoadContextEtherealIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	env.store.turns = []Turn{{Body: "should not appear", Sender: SenderUser}}

	msgs, err := env.processor.loadContext(context.Background(), ParseConversation("-1"), 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
