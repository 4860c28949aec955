package server

// handshakeFrame is the first message a client sends on a new connection.
type handshakeFrame struct {
	Token  string `json:"token"`
	ChatID string `json:"chat_id,omitempty"`
}

// Frame types emitted by the server.
const (
	frameChatInit   = "chat_init"
	frameChatResume = "chat_resume"
	frameReady      = "ready"
	frameMessage    = "message"
	frameError      = "error"
)

// serverFrame is every frame the server emits.
type serverFrame struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id,omitempty"`
	Content string `json:"content,omitempty"`
}
