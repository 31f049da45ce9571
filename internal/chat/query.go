package chat

import (
	"context"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

// defaultWindows is the descending sequence of context-window sizes tried
// by the adaptive query. Larger windows improve coherence but can dilute
// retrieval relevance; the smaller fallbacks sharpen retrieval when a
// larger window under-grounds.
var defaultWindows = []int{10, 5, 1}

// adaptiveQuery issues grounded completion requests over shrinking context
// windows and selects the best-grounded response. Selection is a pure fold
// over the attempts with moreGrounded as the comparator; iteration stops as
// soon as the running best carries at least one citation, trading a
// marginal improvement for latency.
func (p *Processor) adaptiveQuery(ctx context.Context, msgs []completion.Message, index, roleInformation string) (*completion.Response, error) {
	var attempts []*completion.Response
	for _, window := range p.opts.Windows {
		resp, err := p.completer.Complete(ctx, completion.GroundedRequest{
			Messages:        lastN(msgs, window),
			IndexName:       index,
			RoleInformation: roleInformation,
			MaxTokens:       p.opts.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, resp)
		if citationCount(selectBest(attempts)) > 0 {
			break
		}
	}

	best := selectBest(attempts)
	if best == nil || len(best.Choices) == 0 {
		return nil, ErrNoCompletion
	}
	return best, nil
}

// selectBest folds attempt results with moreGrounded. Ties resolve to the
// earlier attempt, i.e. the larger window tried first; later attempts only
// replace the best when strictly better.
func selectBest(attempts []*completion.Response) *completion.Response {
	var best *completion.Response
	for _, a := range attempts {
		if moreGrounded(a, best) {
			best = a
		}
	}
	return best
}

// moreGrounded reports whether a is strictly better grounded than b.
func moreGrounded(a, b *completion.Response) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return citationCount(a) > citationCount(b)
}

func citationCount(r *completion.Response) int {
	if r == nil || len(r.Choices) == 0 {
		return 0
	}
	return len(r.Choices[0].Citations)
}

// lastN returns the most recent n messages.
func lastN(msgs []completion.Message, n int) []completion.Message {
	if n < 0 || n >= len(msgs) {
		return msgs
	}
	return msgs[len(msgs)-n:]
}
