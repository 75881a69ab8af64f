package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voicerelay/backend/internal/model/persona"
	"github.com/voicerelay/backend/pkg/utils"
)

// View 对外暴露的 persona 信息，不包含系统提示词
type View struct {
	Name        string  `json:"name"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float32 `json:"temperature"`
}

// Handler persona服务的HTTP处理器
type Handler struct {
	active persona.Config
}

// New 创建persona处理器
func New(active persona.Config) *Handler {
	return &Handler{active: active}
}

// RegisterRoutes 注册persona相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleGetPersona)
}

// handleGetPersona 返回当前生效的persona
func (h *Handler) handleGetPersona(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, View{
		Name:        h.active.Name,
		MaxTokens:   h.active.MaxTokens,
		Temperature: h.active.Temperature,
	})
}
