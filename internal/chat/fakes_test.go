package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

type fakeVerifier struct {
	valid  bool
	userID string
}

func (f *fakeVerifier) Verify(string) bool { return f.valid }

func (f *fakeVerifier) UserID(string) (string, error) {
	if f.userID == "" {
		return "", errors.New("no subject")
	}
	return f.userID, nil
}

type fakeStore struct {
	owner      string
	turns      []Turn
	saved      []Turn
	saveErr    error
	ownerCalls int
}

func (f *fakeStore) SaveTurn(_ context.Context, t Turn) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeStore) RecentTurns(_ context.Context, _ string, limit int) ([]Turn, error) {
	if limit > 0 && len(f.turns) > limit {
		return f.turns[len(f.turns)-limit:], nil
	}
	return f.turns, nil
}

func (f *fakeStore) ConversationOwner(_ context.Context, _ string) (string, error) {
	f.ownerCalls++
	return f.owner, nil
}

type fakeCompleter struct {
	responses []*completion.Response
	err       error
	calls     []completion.GroundedRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req completion.GroundedRequest) (*completion.Response, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

type fakeVision struct {
	summary string
	err     error
	calls   int
}

func (f *fakeVision) Describe(context.Context, string) (string, error) {
	f.calls++
	return f.summary, f.err
}

type fakeIndexes struct {
	exists func(index string) bool
	err    error
	calls  []string
}

func (f *fakeIndexes) Exists(_ context.Context, index string) (bool, error) {
	f.calls = append(f.calls, index)
	if f.err != nil {
		return false, f.err
	}
	if f.exists == nil {
		return true, nil
	}
	return f.exists(index), nil
}

type fakeBlobs struct {
	putErr  error
	signErr error
	puts    map[string][]byte
}

func (f *fakeBlobs) Put(_ context.Context, bucket, key string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[bucket+"/"+key] = data
	return nil
}

func (f *fakeBlobs) SignedURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "signed://" + bucket + "/" + key, nil
}

type fakePublisher struct {
	payloads []OutboundMessage
}

func (f *fakePublisher) Publish(_ string, payload []byte) error {
	var msg OutboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	f.payloads = append(f.payloads, msg)
	return nil
}

// respWith builds a single-choice response with the given content and
// citation count.
func respWith(content string, citations int) *completion.Response {
	cits := make([]completion.Citation, citations)
	for i := range cits {
		cits[i] = completion.Citation{Content: "chunk", Filepath: "doc.pdf"}
	}
	return &completion.Response{Choices: []completion.Choice{{Content: content, Citations: cits}}}
}

type testEnv struct {
	verifier  *fakeVerifier
	store     *fakeStore
	completer *fakeCompleter
	vision    *fakeVision
	indexes   *fakeIndexes
	blobs     *fakeBlobs
	publisher *fakePublisher
	processor *Processor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		verifier:  &fakeVerifier{valid: true, userID: "user-123"},
		store:     &fakeStore{owner: "user-123"},
		completer: &fakeCompleter{responses: []*completion.Response{respWith("hi", 0)}},
		vision:    &fakeVision{summary: "summary"},
		indexes:   &fakeIndexes{},
		blobs:     &fakeBlobs{},
		publisher: &fakePublisher{},
	}
	env.processor = NewProcessor(Deps{
		Verifier:  env.verifier,
		Store:     env.store,
		Completer: env.completer,
		Vision:    env.vision,
		Indexes:   env.indexes,
		Blobs:     env.blobs,
		Publisher: env.publisher,
	}, Options{
		ImageBucket:    "images",
		DocumentBucket: "documents",
	})
	return env
}

func inbound(t *testing.T, msg InboundMessage) []byte {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal inbound: %v", err)
	}
	return raw
}
