// Package chat implements the conversation turn processor: the pipeline
// that turns one inbound user message into a grounded reply, persists the
// exchange, and publishes the result over the real-time channel.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomaskol/wrenchbot/internal/completion"
	"github.com/tomaskol/wrenchbot/internal/search"
)

// Collaborator contracts. Each backend is a narrow capability set so test
// doubles can be substituted without process-wide state.

type TokenVerifier interface {
	Verify(token string) bool
	UserID(token string) (string, error)
}

type ConversationStore interface {
	SaveTurn(ctx context.Context, t Turn) error
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error)
	ConversationOwner(ctx context.Context, conversationID string) (string, error)
}

type Completer interface {
	Complete(ctx context.Context, req completion.GroundedRequest) (*completion.Response, error)
}

type VisionDescriber interface {
	Describe(ctx context.Context, imageDataURL string) (string, error)
}

type IndexChecker interface {
	Exists(ctx context.Context, index string) (bool, error)
}

type BlobStore interface {
	Put(ctx context.Context, bucket, key string, data []byte) error
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type Publisher interface {
	Publish(connectionID string, payload []byte) error
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Verifier  TokenVerifier
	Store     ConversationStore
	Completer Completer
	Vision    VisionDescriber
	Indexes   IndexChecker
	Blobs     BlobStore
	Publisher Publisher
}

// Options carries the tunables of the pipeline.
type Options struct {
	// Windows is the descending context-window retry sequence.
	Windows []int
	// HistorySize caps how many prior turns are materialized.
	HistorySize int
	// MaxTokens is the response-length ceiling per grounded request.
	MaxTokens int
	// MaxImageWidth bounds recompressed image width; no upscaling.
	MaxImageWidth int
	// ImageBucket receives archived image blobs.
	ImageBucket string
	// DocumentBucket backs citation filepaths.
	DocumentBucket string
	// SignedURLTTL limits how long translated citation URLs stay valid.
	SignedURLTTL time.Duration
}

// Processor drives one inbound message through authentication,
// authorization, context building, the image or text branch, persistence
// and delivery. It is stateless across invocations.
type Processor struct {
	verifier  TokenVerifier
	store     ConversationStore
	completer Completer
	vision    VisionDescriber
	indexes   IndexChecker
	blobs     BlobStore
	publisher Publisher
	opts      Options

	now func() time.Time
}

func NewProcessor(deps Deps, opts Options) *Processor {
	if len(opts.Windows) == 0 {
		opts.Windows = defaultWindows
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = 10
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	if opts.MaxImageWidth <= 0 {
		opts.MaxImageWidth = 1024
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	return &Processor{
		verifier:  deps.Verifier,
		store:     deps.Store,
		completer: deps.Completer,
		vision:    deps.Vision,
		indexes:   deps.Indexes,
		blobs:     deps.Blobs,
		publisher: deps.Publisher,
		opts:      opts,
		now:       time.Now,
	}
}

// HandleTurn is the single entry point: raw is the wire-form inbound
// message, connID identifies the real-time connection to reply on. User
// attributable failures become one outbound error payload; anything else
// is returned for the hosting layer to log.
func (p *Processor) HandleTurn(ctx context.Context, raw []byte, connID string) error {
	var msg InboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return p.reportMalformed(connID, err)
	}
	if msg.Text == "" || msg.ConversationID == "" || msg.AuthToken == "" {
		return p.reportMalformed(connID, ErrMalformedRequest)
	}
	return p.process(ctx, msg, connID)
}

func (p *Processor) reportMalformed(connID string, err error) error {
	if connID == "" {
		slog.Error("cannot parse chat request and no connection to report to", "error", err)
		return nil
	}
	p.sendError(connID, fmt.Sprintf("cannot parse chat message. for debugging purposes, you were %s", connID))
	return nil
}

func (p *Processor) process(ctx context.Context, msg InboundMessage, connID string) error {
	if !p.verifier.Verify(msg.AuthToken) {
		p.sendError(connID, fmt.Sprintf("Invalid token. for debugging purposes, you were %s", connID))
		return nil
	}

	userID, err := p.verifier.UserID(msg.AuthToken)
	if err != nil {
		p.sendError(connID, fmt.Sprintf("Invalid token. for debugging purposes, you were %s", connID))
		return nil
	}

	conv := ParseConversation(msg.ConversationID)

	// Ethereal conversations are validation-only sessions with no stored
	// ownership to check against.
	if !conv.Ethereal {
		owner, err := p.store.ConversationOwner(ctx, conv.ID)
		if err != nil {
			return fmt.Errorf("resolve conversation owner: %w", err)
		}
		if owner == "" || owner != userID {
			p.sendError(connID, fmt.Sprintf("User not authorised. for debugging purposes, you were %s", connID))
			return nil
		}
	}

	history, err := p.loadContext(ctx, conv, p.opts.HistorySize)
	if err != nil {
		return err
	}

	if msg.IsImage {
		return p.processImage(ctx, msg, conv, connID)
	}
	return p.processText(ctx, msg, conv, userID, history, connID)
}

// processImage runs the image branch: interpret the payload, shadow the
// storage reference and the interpretation, and deliver the plain summary.
// No retrieval query is issued for image turns.
func (p *Processor) processImage(ctx context.Context, msg InboundMessage, conv Conversation, connID string) error {
	res, err := p.interpretImage(ctx, msg.Text)
	if err != nil {
		switch {
		case errors.Is(err, ErrImageFormat):
			p.sendError(connID, fmt.Sprintf("message claims to be an image, but is not a URL encoded image. for debugging purposes, you were %s", connID))
		case errors.Is(err, ErrImageCompression):
			p.sendError(connID, fmt.Sprintf("message claims to be an image, but cannot be compressed. for debugging purposes, you were %s", connID))
		case errors.Is(err, ErrImageSummarization):
			p.sendError(connID, fmt.Sprintf("message claims to be an image, but cannot be interpreted. for debugging purposes, you were %s", connID))
		default:
			return err
		}
		return nil
	}

	// The summary speaks as the user but is stored as a synthetic bot turn
	// carrying the interpretation.
	marked := imageMarker + res.Summary
	if err := p.persist(ctx, conv, p.newTurn(conv, res.StorageRef, SenderUser, true, nil, marked)); err != nil {
		return err
	}
	if err := p.persist(ctx, conv, p.newTurn(conv, marked, SenderBot, false, nil, "")); err != nil {
		return err
	}

	p.send(connID, NewResponseMessage(res.Summary, msg.ConversationID, p.now(), nil))
	return nil
}

// processText runs the text branch: persist the user turn, compose the
// grounding prompt from the caller's personal summary index, run the
// adaptive retrieval query, then persist and deliver the reply.
func (p *Processor) processText(ctx context.Context, msg InboundMessage, conv Conversation, userID string, history []completion.Message, connID string) error {
	msgs := append(history, completion.UserMessage(msg.Text))

	if err := p.persist(ctx, conv, p.newTurn(conv, msg.Text, SenderUser, false, nil, "")); err != nil {
		return err
	}

	summaryIndex := search.UserIndex(userID)
	target := msg.Index
	if target == "" {
		target = summaryIndex
	}

	ok, err := p.indexes.Exists(ctx, target)
	if err != nil {
		return fmt.Errorf("check knowledge index: %w", err)
	}
	if !ok {
		p.sendError(connID, fmt.Sprintf("knowledge index is not ready. for debugging purposes, you were %s", connID))
		return nil
	}

	summary, err := p.contextualSummary(ctx, msgs, summaryIndex)
	if err != nil {
		return err
	}

	best, err := p.adaptiveQuery(ctx, msgs, target, groundingPrompt(summary))
	if errors.Is(err, ErrNoCompletion) {
		p.sendError(connID, fmt.Sprintf("no response from AI chat. for debugging purposes, you were %s", connID))
		return nil
	}
	if err != nil {
		return err
	}

	answer := best.Choices[0].Content
	if strings.TrimSpace(answer) == "" {
		p.sendError(connID, fmt.Sprintf("empty response from AI chat. for debugging purposes, you were %s", connID))
		return nil
	}

	citations := best.Choices[0].Citations
	translated, err := TranslateCitations(ctx, citations, p.blobs, p.opts.DocumentBucket, p.opts.SignedURLTTL)
	if err != nil {
		return fmt.Errorf("translate citations: %w", err)
	}

	// The persisted turn keeps the original, untranslated citations.
	if err := p.persist(ctx, conv, p.newTurn(conv, answer, SenderBot, false, citations, "")); err != nil {
		return err
	}

	p.send(connID, NewResponseMessage(answer, msg.ConversationID, p.now(), translated))
	return nil
}

// contextualSummary guard-queries the caller's personal summary index. A
// missing index is the benign empty result; errors raised by the query
// itself are not swallowed.
func (p *Processor) contextualSummary(ctx context.Context, msgs []completion.Message, summaryIndex string) (string, error) {
	return p.guardIndex(ctx, summaryIndex, func() (string, error) {
		resp, err := p.adaptiveQuery(ctx, msgs, summaryIndex, summaryRoleInformation)
		if err != nil {
			if errors.Is(err, ErrNoCompletion) {
				slog.Warn("summary index produced no completion, continuing without context", "index", summaryIndex)
				return "", nil
			}
			return "", err
		}
		return stripCitationMarkers(resp.Choices[0].Content), nil
	})
}

// guardIndex invokes supplier only when the index exists; a missing index
// yields an empty result rather than an error. Only the existence check is
// guarded.
func (p *Processor) guardIndex(ctx context.Context, index string, supplier func() (string, error)) (string, error) {
	ok, err := p.indexes.Exists(ctx, index)
	if err != nil {
		return "", fmt.Errorf("check index %s: %w", index, err)
	}
	if !ok {
		return "", nil
	}
	return supplier()
}

// persist shadows one turn to the store. The ethereal exemption is
// enforced here, once, for every write path.
func (p *Processor) persist(ctx context.Context, conv Conversation, t Turn) error {
	if conv.Ethereal {
		return nil
	}
	if err := p.store.SaveTurn(ctx, t); err != nil {
		return fmt.Errorf("save turn: %w", err)
	}
	return nil
}

func (p *Processor) newTurn(conv Conversation, body string, sender Sender, isImage bool, citations []completion.Citation, aux string) Turn {
	return Turn{
		ID:               uuid.NewString(),
		ConversationID:   conv.ID,
		Body:             body,
		SentAt:           p.now(),
		IsImage:          isImage,
		Sender:           sender,
		Citations:        citations,
		AuxiliaryContext: aux,
	}
}

func (p *Processor) send(connID string, msg OutboundMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal outbound message", "error", err)
		return
	}
	if err := p.publisher.Publish(connID, payload); err != nil {
		slog.Error("publish failed", "conn", connID, "error", err)
	}
}

func (p *Processor) sendError(connID, body string) {
	slog.Error("chat turn failed", "conn", connID, "body", body)
	p.send(connID, NewErrorMessage(body))
}
