// Package server exposes the turn protocol over WebSocket: one handshake,
// then strictly alternating user message / assistant reply frames. All turn
// processing for a connection is serial; only fact extraction and
// summarization run in the background after the reply is sent.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/soukly/agentcore/agent"
	"github.com/soukly/agentcore/core"
	"github.com/soukly/agentcore/flows"
	"github.com/soukly/agentcore/llm"
	"github.com/soukly/agentcore/memory"
	"github.com/soukly/agentcore/tools"
)

// backgroundTimeout bounds the post-reply extraction and summarization work.
const backgroundTimeout = 30 * time.Second

// Config carries the transport-level settings.
type Config struct {
	// JWTSecret signs handshake tokens (HS256).
	JWTSecret string

	// SummaryThreshold is the approximate token count of buffered
	// conversation above which a summary is written. Zero disables
	// summarization.
	SummaryThreshold int
}

// Server upgrades connections and runs the per-connection turn loop.
type Server struct {
	cfg        Config
	runner     *agent.Runner
	mem        *memory.Manager
	buffers    *memory.BufferSet
	flows      *flows.Registry
	dispatcher *tools.Dispatcher
	extractor  *llm.Extractor
	summaries  memory.SummaryStore
	client     llm.Client
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// New assembles the WebSocket server.
func New(cfg Config, runner *agent.Runner, mem *memory.Manager, buffers *memory.BufferSet,
	reg *flows.Registry, dispatcher *tools.Dispatcher, extractor *llm.Extractor,
	summaries memory.SummaryStore, client llm.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:        cfg,
		runner:     runner,
		mem:        mem,
		buffers:    buffers,
		flows:      reg,
		dispatcher: dispatcher,
		extractor:  extractor,
		summaries:  summaries,
		client:     client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log.Named("ws"),
	}
}

// Handler returns the HTTP handler for the chat endpoint.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleChat)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	userID, chatID, resumed, err := s.handshake(conn)
	if err != nil {
		s.log.Debug("handshake aborted", zap.Error(err))
		return
	}

	initType := frameChatInit
	if resumed {
		initType = frameChatResume
	}
	if err := conn.WriteJSON(serverFrame{Type: initType, ChatID: chatID}); err != nil {
		return
	}
	if err := conn.WriteJSON(serverFrame{Type: frameReady}); err != nil {
		return
	}

	s.log.Info("session started",
		zap.String("user_id", userID),
		zap.String("chat_id", chatID),
		zap.Bool("resumed", resumed))
	s.turnLoop(r.Context(), conn, userID, chatID)
}

// handshake reads frames until one carries a valid token. Malformed JSON and
// bad tokens get an error frame and another chance; only transport errors
// end the connection.
func (s *Server) handshake(conn *websocket.Conn) (userID, chatID string, resumed bool, err error) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return "", "", false, fmt.Errorf("read handshake: %w", err)
		}

		var hs handshakeFrame
		if err := json.Unmarshal(raw, &hs); err != nil || hs.Token == "" {
			if werr := conn.WriteJSON(serverFrame{Type: frameError, Content: "expected {\"token\": \"...\"}"}); werr != nil {
				return "", "", false, werr
			}
			continue
		}

		userID, err = sellerFromToken(hs.Token, []byte(s.cfg.JWTSecret))
		if err != nil {
			s.log.Debug("token rejected", zap.Error(err))
			if werr := conn.WriteJSON(serverFrame{Type: frameError, Content: "invalid token"}); werr != nil {
				return "", "", false, werr
			}
			continue
		}

		if hs.ChatID != "" {
			return userID, hs.ChatID, true, nil
		}
		return userID, uuid.NewString(), false, nil
	}
}

// turnLoop processes one user message at a time. The next frame is not read
// until the previous reply has been written.
func (s *Server) turnLoop(ctx context.Context, conn *websocket.Conn, userID, chatID string) {
	var memoryPending string

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug("session closed", zap.String("chat_id", chatID), zap.Error(err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		message := strings.TrimSpace(string(raw))
		if message == "" {
			continue
		}

		reply, pending := s.runTurn(ctx, userID, chatID, message, memoryPending)
		memoryPending = pending

		if err := conn.WriteJSON(serverFrame{Type: frameMessage, ChatID: chatID, Content: reply}); err != nil {
			s.log.Debug("write failed", zap.String("chat_id", chatID), zap.Error(err))
			return
		}

		go s.afterTurn(userID, chatID, message)
	}
}

// runTurn produces exactly one reply for one user message.
func (s *Server) runTurn(ctx context.Context, userID, chatID, message, memoryPending string) (reply, pending string) {
	buffer := s.buffers.Get(chatID)

	// Reinforcement observation sees every user message, including ones a
	// guided flow will consume.
	s.mem.Observe(ctx, userID, message)

	defer func() {
		buffer.Append(core.RoleUser, message)
		buffer.Append(core.RoleAssistant, reply)
	}()

	switch out := flows.Advance(s.flows, userID, chatID, message); out.Kind {
	case flows.OutcomeAsk:
		return out.Prompt, memoryPending
	case flows.OutcomeTool:
		result := s.dispatcher.Execute(ctx, out.ToolName, out.Arguments, tools.Trusted{SellerID: userID})
		return agent.FormatToolResult(&result), memoryPending
	}

	state := &core.TurnState{
		ChatID:        chatID,
		UserID:        userID,
		Messages:      append(buffer.Messages(), core.Message{Role: core.RoleUser, Content: message}),
		MemoryPending: memoryPending,
	}
	state, err := s.runner.Run(ctx, state)
	if err != nil {
		s.log.Warn("turn aborted", zap.String("chat_id", chatID), zap.Error(err))
		return "", memoryPending
	}
	return state.Reply(), state.MemoryPending
}

// afterTurn runs the post-reply background work: fact extraction on the
// user's message and, past the size threshold, a conversation summary.
// Neither can affect the reply that was already sent.
func (s *Server) afterTurn(userID, chatID, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), backgroundTimeout)
	defer cancel()

	s.extractFacts(ctx, userID, chatID, message)
	s.maybeSummarize(ctx, chatID)
}

func (s *Server) extractFacts(ctx context.Context, userID, chatID, message string) {
	if s.extractor == nil {
		return
	}
	var previous []string
	for _, m := range s.buffers.Get(chatID).Messages() {
		if m.Role == core.RoleUser && m.Content != message {
			previous = append(previous, m.Content)
		}
	}

	facts, err := s.extractor.Extract(ctx, message, previous)
	if err != nil {
		s.log.Warn("fact extraction failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	for _, f := range facts {
		if _, err := s.mem.Insert(ctx, userID, f.Key, f.Value, f.Confidence, "extraction"); err != nil {
			s.log.Warn("fact insert failed",
				zap.String("user_id", userID),
				zap.String("key", f.Key),
				zap.Error(err))
		}
	}
}

// maybeSummarize writes a one-sentence chat summary once the buffered
// conversation grows past the configured threshold. Token count is
// approximated as length/4.
func (s *Server) maybeSummarize(ctx context.Context, chatID string) {
	if s.cfg.SummaryThreshold <= 0 || s.summaries == nil || s.client == nil {
		return
	}

	messages := s.buffers.Get(chatID).Messages()
	total := 0
	for _, m := range messages {
		total += len(m.Content)
	}
	if total/4 < s.cfg.SummaryThreshold {
		return
	}

	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	resp, err := s.client.Complete(ctx, llm.Request{
		Messages: []core.Message{{
			Role:    core.RoleUser,
			Content: "Summarize this conversation in one sentence, keeping any facts about the user:\n\n" + b.String(),
		}},
		Temperature: 0.1,
	})
	if err != nil {
		s.log.Warn("summarization failed", zap.String("chat_id", chatID), zap.Error(err))
		return
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return
	}
	if err := s.summaries.SaveSummary(ctx, chatID, summary); err != nil {
		s.log.Warn("summary save failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}
