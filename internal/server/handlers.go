package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"tourrag/internal/domain"
	"tourrag/internal/usecase"
)

const maxRequestBytes = 1 << 20

// chatRequest is the body of POST /api/chat and of each websocket message.
type chatRequest struct {
	Message string        `json:"message"`
	History []historyItem `json:"history"`
}

type historyItem struct {
	Type    string `json:"type"` // "user" or "assistant"
	Message string `json:"message"`
}

func (r chatRequest) toUseCase() usecase.ChatRequest {
	req := usecase.ChatRequest{Message: r.Message}
	for _, h := range r.History {
		role := domain.RoleUser
		if h.Type == "assistant" {
			role = domain.RoleAssistant
		}
		req.History = append(req.History, domain.Message{Role: role, Content: h.Message})
	}
	return req
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false

	result, err := s.deps.Chat.Stream(r.Context(), body.toUseCase(), func(chunk string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug().Msg("Chat client went away")
			return
		}
		s.logger.Error().Err(err).Msg("Chat failed")
		if !started {
			writeError(w, statusFor(err), err.Error())
		}
		return
	}

	if !started {
		// Generation produced no text; still answer with an empty 200.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}

	s.logger.Info().
		Str("tier", result.Tier.String()).
		Int("hits", len(result.Hits)).
		Msg("Chat answered")
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsDone struct {
	Done          bool        `json:"done"`
	Tier          domain.Tier `json:"tier"`
	LowConfidence bool        `json:"low_confidence"`
}

// handleChatWS answers each JSON chat message with one text frame per
// generated chunk followed by a {"done":true} frame.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to upgrade websocket")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Websocket closed unexpectedly")
			}
			return
		}

		var body chatRequest
		if err := json.Unmarshal(data, &body); err != nil || strings.TrimSpace(body.Message) == "" {
			if err := writeFrame(conn, map[string]string{"error": "message is required"}); err != nil {
				return
			}
			continue
		}

		result, err := s.deps.Chat.Stream(ctx, body.toUseCase(), func(chunk string) error {
			return conn.WriteMessage(websocket.TextMessage, []byte(chunk))
		})
		if err != nil {
			s.logger.Error().Err(err).Msg("Websocket chat failed")
			if werr := writeFrame(conn, map[string]string{"error": err.Error()}); werr != nil {
				return
			}
			continue
		}

		if err := writeFrame(conn, wsDone{Done: true, Tier: result.Tier, LowConfidence: result.LowConfidence}); err != nil {
			return
		}
	}
}

type healthResponse struct {
	Status       string          `json:"status"`
	Collection   string          `json:"collection,omitempty"`
	IndexPoints  int             `json:"index_points"`
	LocalRecords int             `json:"local_records"`
	Tiers        map[string]bool `json:"tiers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := healthResponse{
		Status: "ok",
		Tiers: map[string]bool{
			domain.TierVectorSearch.String():  false,
			domain.TierTextFilter.String():    false,
			domain.TierLocalFallback.String(): false,
		},
	}

	if s.deps.Index != nil {
		resp.Collection = s.deps.Index.Name()
		if n, err := s.deps.Index.Count(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Index count failed")
		} else {
			resp.IndexPoints = n
			resp.Tiers[domain.TierVectorSearch.String()] = true
			resp.Tiers[domain.TierTextFilter.String()] = true
		}
	}

	if s.deps.Local != nil {
		if records, err := s.deps.Local.Load(r.Context()); err == nil {
			resp.LocalRecords = len(records)
			resp.Tiers[domain.TierLocalFallback.String()] = len(records) > 0
		} else if !errors.Is(err, domain.ErrStoreNotFound) {
			s.logger.Warn().Err(err).Str("path", s.deps.Local.Path()).Msg("Local store unreadable")
		}
	}

	if !resp.Tiers[domain.TierVectorSearch.String()] && !resp.Tiers[domain.TierLocalFallback.String()] {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	var embErr *domain.EmbeddingError
	if errors.As(err, &embErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeFrame(conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
