package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tomaskol/wrenchbot/internal/chat"
	"github.com/tomaskol/wrenchbot/internal/completion"
)

const historyLimit = 50

func (s *Server) registerAPIRoutes(engine *gin.Engine) {
	api := engine.Group("/api")
	api.POST("/chat/connection", s.ginChatConnection)
	api.POST("/chat/conversation", s.ginCreateConversation)
	api.GET("/chat/history", s.ginChatHistory)
}

// callerID verifies the Auth-Token header and resolves the caller's user
// id. On failure it writes the 401 and returns "".
func (s *Server) callerID(c *gin.Context) string {
	token := c.GetHeader("Auth-Token")
	if token == "" || !s.Verifier.Verify(token) {
		c.AbortWithStatus(http.StatusUnauthorized)
		return ""
	}
	userID, err := s.Verifier.UserID(token)
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return ""
	}
	return userID
}

// ginChatConnection negotiates a real-time connection: it hands the client
// the websocket URL and how long the grant is meant to last.
func (s *Server) ginChatConnection(c *gin.Context) {
	if s.callerID(c) == "" {
		return
	}

	wsURL := s.Config.Gateway.PublicURL
	if wsURL == "" {
		wsURL = fmt.Sprintf("ws://localhost:%d/ws", s.Config.Gateway.Port)
	}
	c.JSON(http.StatusOK, gin.H{
		"wsUrl": wsURL,
		"ttl":   s.Config.Gateway.ConnectionTTLMinutes,
	})
}

// ginCreateConversation opens a new conversation owned by the caller.
func (s *Server) ginCreateConversation(c *gin.Context) {
	userID := s.callerID(c)
	if userID == "" {
		return
	}

	conversationID := uuid.NewString()
	if err := s.Store.CreateConversation(c.Request.Context(), conversationID, userID); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": conversationID})
}

// historyMessage is the wire form of one turn in the history response.
type historyMessage struct {
	ConversationID string                `json:"conversationId"`
	Message        string                `json:"message"`
	SentAt         time.Time             `json:"sentAt"`
	IsImage        bool                  `json:"isImage"`
	Sender         chat.Sender           `json:"sender"`
	Citations      []completion.Citation `json:"citations"`
}

// ginChatHistory returns the most recent turns of a conversation the
// caller owns. Image turn bodies are replaced by signed blob URLs and
// citation filepaths are translated the same way.
func (s *Server) ginChatHistory(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	userID := s.callerID(c)
	if userID == "" {
		return
	}

	owner, err := s.Store.ConversationOwner(c.Request.Context(), conversationID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if owner == "" || owner != userID {
		c.String(http.StatusUnauthorized, "User not authorised.")
		return
	}

	turns, err := s.Store.RecentTurns(c.Request.Context(), conversationID, historyLimit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ttl := time.Duration(s.Config.Chat.SignedURLTTLMinutes) * time.Minute
	messages := make([]historyMessage, 0, len(turns))
	for _, t := range turns {
		body := t.Body
		if t.IsImage {
			signed, err := s.Blobs.SignedURL(c.Request.Context(), s.Config.Blob.ImageBucket, t.Body, ttl)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			body = signed
		}

		citations, err := chat.TranslateCitations(c.Request.Context(), t.Citations, s.Blobs, s.Config.Blob.DocumentBucket, ttl)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		messages = append(messages, historyMessage{
			ConversationID: t.ConversationID,
			Message:        body,
			SentAt:         t.SentAt,
			IsImage:        t.IsImage,
			Sender:         t.Sender,
			Citations:      citations,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
