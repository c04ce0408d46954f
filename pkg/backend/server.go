package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const Version = "2.0.0"

const (
	quotaReply = "ChefBot has reached its daily cooking limit, Please try again tomorrow."
	maxBody    = 1 << 20
)

var availableEndpoints = []string{"/", "/chat", "/clear", "/history", "/health"}

type chatRequest struct {
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id"`
}

// Server exposes the cooking assistant over HTTP.
type Server struct {
	engine        Engine
	memory        *Memory
	apiConfigured bool
	model         string
}

type ServerOption func(*Server)

func WithMemory(m *Memory) ServerOption {
	return func(s *Server) {
		if m != nil {
			s.memory = m
		}
	}
}

func WithModelName(model string) ServerOption {
	return func(s *Server) { s.model = model }
}

func NewServer(engine Engine, opts ...ServerOption) *Server {
	s := &Server{engine: engine, memory: NewMemory(DefaultHistoryLimit), apiConfigured: engine != nil}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.route("/", http.MethodGet, s.handleHome))
	mux.HandleFunc("/health", s.route("/health", http.MethodGet, s.handleHealth))
	mux.HandleFunc("/chat", s.route("/chat", http.MethodPost, s.handleChat))
	mux.HandleFunc("/clear", s.route("/clear", http.MethodPost, s.handleClear))
	mux.HandleFunc("/history", s.route("/history", http.MethodGet, s.handleHistory))
	return mux
}

// route answers unknown paths and wrong methods with JSON bodies.
func (s *Server) route(path, method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			writeJSON(w, http.StatusNotFound, notFoundBody())
			return
		}
		if r.Method != method {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
				"error":   "Method not allowed",
				"message": "This endpoint does not support the requested HTTP method",
			})
			return
		}
		h(w, r)
	}
}

func notFoundBody() map[string]any {
	return map[string]any{
		"error":               "Endpoint not found",
		"message":             "The requested endpoint does not exist",
		"available_endpoints": availableEndpoints,
	}
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "running",
		"message":  "ChefBot server is running",
		"version":  Version,
		"features": []string{"conversation_memory", "session_management"},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"api_configured":  s.apiConfigured,
		"model":           s.model,
		"active_sessions": s.memory.Sessions(),
		"endpoints": map[string]string{
			"chat":    "/chat (POST)",
			"clear":   "/clear (POST)",
			"history": "/history (GET)",
			"health":  "/health (GET)",
			"home":    "/ (GET)",
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req)
	userInput := strings.TrimSpace(req.UserInput)
	sessionID := sessionOrDefault(req.SessionID)
	if userInput == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "No input provided",
			"message": "Please provide a message in 'user_input' field",
		})
		return
	}
	if s.engine == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":    "Failed to generate response",
			"response": "Sorry, I encountered an error: no text generation engine is configured. Please try again.",
		})
		return
	}

	prompt := BuildPrompt(s.memory.History(sessionID), userInput)
	raw, err := s.engine.Generate(r.Context(), prompt)
	if err != nil {
		msg := err.Error()
		log.Warn().Err(err).Str("component", "backend").Str("session_id", sessionID).Msg("generation failed")
		if isQuotaError(msg) {
			writeJSON(w, http.StatusOK, map[string]any{
				"error":    "Quota exceeded",
				"response": quotaReply,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"error":    "Failed to generate response",
			"response": fmt.Sprintf("Sorry, I encountered an error: %s. Please try again.", msg),
		})
		return
	}

	reply := CleanMarkdown(raw)
	if reply == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Empty response from AI",
			"message": "The AI didn't generate a response. Please try again.",
		})
		return
	}
	s.memory.Save(sessionID, userInput, reply)
	log.Debug().Str("component", "backend").Str("session_id", sessionID).Int("reply_len", len(reply)).Msg("reply generated")
	writeJSON(w, http.StatusOK, map[string]any{
		"response":   reply,
		"session_id": sessionID,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req)
	sessionID := sessionOrDefault(req.SessionID)
	msg := "No conversation found for this session"
	if s.memory.Clear(sessionID) {
		msg = "Conversation history cleared"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    msg,
		"session_id": sessionID,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionOrDefault(r.URL.Query().Get("session_id"))
	history := s.memory.History(sessionID)
	if history == nil {
		history = []Turn{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":    sessionID,
		"message_count": len(history),
		"history":       history,
	})
}

func sessionOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return DefaultSessionID
	}
	return id
}

func isQuotaError(msg string) bool {
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "429") ||
		strings.Contains(strings.ToLower(msg), "quota")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
