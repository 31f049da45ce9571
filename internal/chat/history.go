package chat

import (
	"context"
	"fmt"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

// loadContext fetches the most recent turns of a conversation in
// chronological order and converts them into model-ready messages. A turn
// flagged as an image contributes its textual interpretation instead of the
// opaque storage reference, so downstream models reason over interpreted
// content. Ethereal conversations have no readable history.
func (p *Processor) loadContext(ctx context.Context, conv Conversation, window int) ([]completion.Message, error) {
	if conv.Ethereal {
		return nil, nil
	}

	turns, err := p.store.RecentTurns(ctx, conv.ID, window)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	msgs := make([]completion.Message, 0, len(turns))
	for _, t := range turns {
		content := t.Body
		if t.IsImage {
			content = t.AuxiliaryContext
		}
		if t.Sender == SenderBot {
			msgs = append(msgs, completion.AssistantMessage(content))
		} else {
			msgs = append(msgs, completion.UserMessage(content))
		}
	}
	return msgs, nil
}
