package completion

// Role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a conversation message in model-ready form.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation is a structured reference to a source chunk backing part of a
// grounded answer. Filepath points into the document store; it is only
// rewritten to a signed URL at delivery time, never in place.
type Citation struct {
	Content  string `json:"content"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Filepath string `json:"filepath"`
	ChunkID  string `json:"chunk_id"`
}

// GroundedRequest is one retrieval-augmented completion request against a
// named knowledge index.
type GroundedRequest struct {
	Messages        []Message
	IndexName       string
	RoleInformation string
	MaxTokens       int
}

// Response holds zero or more choices returned by the grounded backend.
type Response struct {
	Choices []Choice
}

// Choice is one candidate answer with its supporting citations.
type Choice struct {
	Content   string
	Citations []Citation
}

// Helper constructors

func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}
