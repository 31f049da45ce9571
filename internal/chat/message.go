package chat

import (
	"time"

	"github.com/tomaskol/wrenchbot/internal/completion"
)

// Sender identifies which conversation partner authored a turn. Since this
// is a chatbot, there are only two.
type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

// etherealConversationID is the reserved conversation id for validation-only
// sessions. It is decoded into Conversation exactly once, at the boundary.
const etherealConversationID = "-1"

// Conversation is the decoded form of a wire conversation id. Ethereal
// conversations are exempt from ownership checks and from every persistence
// path: their turns are never written and never read back.
type Conversation struct {
	ID       string
	Ethereal bool
}

func ParseConversation(id string) Conversation {
	return Conversation{ID: id, Ethereal: id == etherealConversationID}
}

// InboundMessage is the wire form of one user message. It is constructed
// per request and discarded after processing.
type InboundMessage struct {
	Text           string    `json:"message"`
	ConversationID string    `json:"conversationId"`
	AuthToken      string    `json:"authToken"`
	SentAt         time.Time `json:"sentAt"`
	IsImage        bool      `json:"isImage"`
	Index          string    `json:"index"`
}

// Turn is the persisted unit of conversation. For image turns the Body is
// an opaque storage reference and AuxiliaryContext carries the textual
// interpretation.
type Turn struct {
	ID               string
	ConversationID   string
	Body             string
	SentAt           time.Time
	IsImage          bool
	Sender           Sender
	Citations        []completion.Citation
	AuxiliaryContext string
}

// OutboundMessage is the single payload published per turn, success or
// error, distinguished by the Type discriminator.
type OutboundMessage struct {
	Type           string                `json:"type"`
	Body           string                `json:"body"`
	ConversationID string                `json:"conversationId,omitempty"`
	SentAt         *time.Time            `json:"sentAt,omitempty"`
	Citations      []completion.Citation `json:"citations,omitempty"`
}

func NewResponseMessage(body, conversationID string, sentAt time.Time, citations []completion.Citation) OutboundMessage {
	return OutboundMessage{
		Type:           "message",
		Body:           body,
		ConversationID: conversationID,
		SentAt:         &sentAt,
		Citations:      citations,
	}
}

func NewErrorMessage(body string) OutboundMessage {
	return OutboundMessage{Type: "error", Body: body}
}
