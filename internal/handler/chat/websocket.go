package chat

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voicerelay/backend/internal/metrics"
	"github.com/voicerelay/backend/internal/model/chat"
	"github.com/voicerelay/backend/internal/service/ai"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second

	internalErrorMessage    = "internal server error"
	unsupportedFrameMessage = "unsupported frame type"
)

// WebSocketHandler 持久会话处理器：每条文本消息独立完成一次对话
type WebSocketHandler struct {
	exchanger      Exchanger
	metrics        *metrics.Metrics
	progressFrames bool
	upgrader       websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(exchanger Exchanger, m *metrics.Metrics, progressFrames bool) *WebSocketHandler {
	return &WebSocketHandler{
		exchanger:      exchanger,
		metrics:        m,
		progressFrames: progressFrames,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由，两个路径共用同一循环
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
	r.Get("/ws/ai", h.handleWebSocket)
}

// handleWebSocket 处理WebSocket连接，仅在对端断开时退出
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	log.Printf("[websocket] connection opened id=%s remote=%s", connID, r.RemoteAddr)
	h.metrics.SessionOpened()
	defer h.metrics.SessionClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	for {
		// 每次读取前续期，处理耗时不计入对端超时
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Printf("[websocket] read error id=%s: %v", connID, err)
			}
			log.Printf("[websocket] connection closed id=%s", connID)
			return
		}

		if msgType != websocket.TextMessage {
			h.sendError(conn, unsupportedFrameMessage)
			continue
		}

		h.processTurn(ctx, conn, connID, string(data))
	}
}

// processTurn runs one exchange and always answers with exactly one result frame.
func (h *WebSocketHandler) processTurn(ctx context.Context, conn *websocket.Conn, connID, userText string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[websocket] turn panicked id=%s: %v", connID, r)
			h.metrics.ObserveExchange(metrics.SurfaceSession, metrics.OutcomeInternalFailure)
			h.sendError(conn, internalErrorMessage)
		}
	}()

	if h.progressFrames {
		h.send(conn, chat.ProcessingFrame{Processing: true})
	}

	resp, err := h.exchanger.Exchange(ctx, userText)
	if err != nil {
		var upstream *ai.UpstreamError
		if errors.As(err, &upstream) {
			h.metrics.ObserveExchange(metrics.SurfaceSession, metrics.OutcomeUpstreamFailure)
			h.sendError(conn, upstream.Message)
			return
		}
		log.Printf("[websocket] exchange failed id=%s: %v", connID, err)
		h.metrics.ObserveExchange(metrics.SurfaceSession, metrics.OutcomeInternalFailure)
		h.sendError(conn, internalErrorMessage)
		return
	}

	h.metrics.ObserveExchange(metrics.SurfaceSession, metrics.OutcomeOK)
	h.send(conn, resp)
}

func (h *WebSocketHandler) send(conn *websocket.Conn, payload any) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(payload); err != nil {
		log.Printf("[websocket] write failed: %v", err)
	}
}

// sendError 发送错误帧，连接保持打开
func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, chat.ErrorFrame{Error: message})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
