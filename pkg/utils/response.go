package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送错误响应
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondDetail 发送带 detail 字段的错误响应，/chat 的客户端依赖该格式
func RespondDetail(w http.ResponseWriter, status int, detail string) {
	RespondJSON(w, status, map[string]string{"detail": detail})
}
