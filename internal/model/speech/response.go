package speech

// SynthesisResponse 语音服务的响应，AudioLength 单位为秒。
// 指针类型用于区分字段缺失与显式的 0。
type SynthesisResponse struct {
	AudioLength *float64 `json:"audio_length"`
}
