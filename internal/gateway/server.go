// Package gateway hosts the HTTP surface and the real-time channel. Each
// websocket frame received on /ws is handed to the turn processor; replies
// come back over the same connection.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"github.com/tomaskol/wrenchbot/internal/chat"
	"github.com/tomaskol/wrenchbot/internal/config"
	"github.com/tomaskol/wrenchbot/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16 * 1024,
	WriteBufferSize: 16 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the wrenchbot gateway server.
type Server struct {
	Config    *config.Config
	Processor *chat.Processor
	Store     *store.Store
	Verifier  chat.TokenVerifier
	Blobs     chat.BlobStore
	Conns     *ConnManager

	httpSrv *http.Server
	cron    *cron.Cron
	startAt time.Time
}

func NewServer(cfg *config.Config, processor *chat.Processor, st *store.Store, verifier chat.TokenVerifier, blobs chat.BlobStore) *Server {
	return &Server{
		Config:    cfg,
		Processor: processor,
		Store:     st,
		Verifier:  verifier,
		Blobs:     blobs,
		Conns:     NewConnManager(),
		startAt:   time.Now(),
	}
}

// Start begins listening for connections and blocks until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", s.ginHealth)
	engine.GET("/ws", s.ginWebSocket)
	s.registerAPIRoutes(engine)

	s.startCron(ctx)

	addr := fmt.Sprintf(":%d", s.Config.Gateway.Port)
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	slog.Info("wrenchbot gateway starting", "port", s.Config.Gateway.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpSrv.Shutdown(shutdownCtx)
	}()

	if err := s.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// startCron schedules the periodic maintenance jobs: a stale-connection
// sweep and a store health check.
func (s *Server) startCron(ctx context.Context) {
	s.cron = cron.New()
	s.cron.AddFunc("@every 1m", func() {
		if dropped := s.Conns.Sweep(); dropped > 0 {
			slog.Info("swept stale connections", "dropped", dropped)
		}
	})
	s.cron.AddFunc("@every 10m", func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Store.Ping(pingCtx); err != nil {
			slog.Error("store health check failed", "error", err)
		}
	})
	s.cron.Start()
	go func() {
		<-ctx.Done()
		s.cron.Stop()
	}()
}

func (s *Server) ginHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startAt).String(),
		"clients": s.Conns.Count(),
	})
}

func (s *Server) ginWebSocket(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	connID := "conn_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	conn := &Conn{
		ID:          connID,
		WS:          ws,
		ConnectedAt: time.Now(),
	}
	s.Conns.Add(conn)
	defer s.Conns.Remove(connID)

	slog.Info("connection established", "id", connID)

	for {
		msgType, raw, err := ws.ReadMessage()
		if err != nil {
			slog.Debug("connection closed", "id", connID, "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		go func(payload []byte) {
			if err := s.Processor.HandleTurn(context.Background(), payload, connID); err != nil {
				slog.Error("turn processing failed", "conn", connID, "error", err)
			}
		}(raw)
	}
}
