package http

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/olahol/melody"
	"go.uber.org/zap"

	"github.com/smartshop/backend/internal/usecase"
)

const runEventIdle = "idle"

// ProgressHub broadcasts optimization run events to websocket clients
type ProgressHub struct {
	m *melody.Melody

	mu   sync.RWMutex
	last []byte
}

// NewProgressHub creates a hub. New clients first receive the latest event.
func NewProgressHub() *ProgressHub {
	m := melody.New()
	m.Config.MaxMessageSize = 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	h := &ProgressHub{m: m}
	h.last, _ = json.Marshal(usecase.RunEvent{Type: runEventIdle})

	m.HandleConnect(func(s *melody.Session) {
		h.mu.RLock()
		msg := h.last
		h.mu.RUnlock()

		if err := s.Write(msg); err != nil {
			zap.L().Warn("[ProgressHub] initial write failed", zap.Error(err))
		}
	})
	m.HandleDisconnect(func(s *melody.Session) {
		zap.L().Debug("[ProgressHub] client disconnected", zap.String("remote", s.Request.RemoteAddr))
	})
	m.HandleError(func(s *melody.Session, err error) {
		zap.L().Debug("[ProgressHub] websocket error", zap.Error(err))
	})

	return h
}

// Publish broadcasts a run event to every connected client
func (h *ProgressHub) Publish(e usecase.RunEvent) {
	msg, err := json.Marshal(e)
	if err != nil {
		zap.L().Error("[ProgressHub] encode event failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	h.last = msg
	h.mu.Unlock()

	if err := h.m.Broadcast(msg); err != nil && !h.m.IsClosed() {
		zap.L().Warn("[ProgressHub] broadcast failed", zap.Error(err))
	}
}

// HandleWS upgrades the request to a websocket subscribed to run events
func (h *ProgressHub) HandleWS(c *gin.Context) {
	if err := h.m.HandleRequest(c.Writer, c.Request); err != nil {
		zap.L().Warn("[ProgressHub] upgrade failed", zap.Error(err))
	}
}

// Sessions returns the number of connected clients
func (h *ProgressHub) Sessions() int {
	return h.m.Len()
}

// Close disconnects every client
func (h *ProgressHub) Close() error {
	return h.m.Close()
}
