package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicerelay/backend/internal/metrics"
	"github.com/voicerelay/backend/internal/model/chat"
	"github.com/voicerelay/backend/internal/service/ai"
	"github.com/voicerelay/backend/pkg/utils"
)

const welcomeMessage = "Welcome to the AI Chat API. Use /chat to interact with the assistant."

// Exchanger runs one input -> completion -> synthesis cycle.
type Exchanger interface {
	Exchange(ctx context.Context, userText string) (chat.Response, error)
}

// Handler 单次请求/响应的 HTTP 处理器
type Handler struct {
	exchanger Exchanger
	metrics   *metrics.Metrics
}

// New 创建聊天处理器
func New(exchanger Exchanger, m *metrics.Metrics) *Handler {
	return &Handler{
		exchanger: exchanger,
		metrics:   m,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Post("/chat", h.handleChat)
}

// handleRoot 返回欢迎信息与可用端点
func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	log.Println("[chat] root endpoint accessed")
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"message": welcomeMessage,
		"endpoints": map[string]string{
			"POST /chat":   `{"user_input": string} -> {"response": string, "audio_length": number}`,
			"GET /ws/chat": "text frames in, JSON frames out",
			"GET /ws/ai":   "alias of /ws/chat",
			"GET /health":  "liveness probe",
			"GET /persona": "active persona parameters",
		},
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleChat 处理单次对话请求
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chat.Request

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if payload.UserInput == nil {
		utils.RespondDetail(w, http.StatusUnprocessableEntity, "user_input is required")
		return
	}

	resp, err := h.exchanger.Exchange(r.Context(), *payload.UserInput)
	if err != nil {
		var upstream *ai.UpstreamError
		if errors.As(err, &upstream) {
			h.metrics.ObserveExchange(metrics.SurfaceHTTP, metrics.OutcomeUpstreamFailure)
			utils.RespondDetail(w, http.StatusInternalServerError, "Internal server error: "+upstream.Message)
			return
		}
		log.Printf("[chat] unexpected failure: %v", err)
		h.metrics.ObserveExchange(metrics.SurfaceHTTP, metrics.OutcomeInternalFailure)
		utils.RespondDetail(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.metrics.ObserveExchange(metrics.SurfaceHTTP, metrics.OutcomeOK)
	utils.RespondJSON(w, http.StatusOK, resp)
}
