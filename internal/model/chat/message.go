package chat

// Request is the single-shot inbound payload. A nil UserInput means the field
// was absent; empty input is forwarded as-is.
type Request struct {
	UserInput *string `json:"user_input"`
}

// Response pairs the generated text with the synthesized audio length.
// AudioLength is always present and is 0 when synthesis failed.
type Response struct {
	Response    string  `json:"response"`
	AudioLength float64 `json:"audio_length"`
}

// ProcessingFrame tells a session peer that an exchange has started.
type ProcessingFrame struct {
	Processing bool `json:"processing"`
}

// ErrorFrame reports a failed exchange on a session without closing it.
type ErrorFrame struct {
	Error string `json:"error"`
}
