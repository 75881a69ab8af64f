package speech

// SynthesisRequest 是发往语音服务 /generate 的请求体
type SynthesisRequest struct {
	Text string `json:"text"`
}
