// Package handler exposes the bot over HTTP: session creation, chat
// turns, and order administration.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shopbot-dev/shopbot/internal/dialog"
	"github.com/shopbot-dev/shopbot/pkg/observability"
	"github.com/shopbot-dev/shopbot/pkg/order"
	"github.com/shopbot-dev/shopbot/pkg/session"
)

// Handler serves the chat and order endpoints.
type Handler struct {
	engine      *dialog.Engine
	orders      order.Log
	transcripts *session.Manager // optional

	mu       sync.RWMutex
	sessions map[string]*dialog.Session
}

// New creates a Handler. The transcript manager may be nil; turns are
// then not persisted.
func New(engine *dialog.Engine, orders order.Log, transcripts *session.Manager) *Handler {
	return &Handler{
		engine:      engine,
		orders:      orders,
		transcripts: transcripts,
		sessions:    make(map[string]*dialog.Session),
	}
}

// RegisterRoutes mounts the handler's routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.createSession)
	r.Post("/chat", h.chat)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Patch("/orders/{orderID}/status", h.updateOrderStatus)
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := dialog.NewSession()

	h.mu.Lock()
	h.sessions[s.ID] = s
	count := len(h.sessions)
	h.mu.Unlock()
	observability.SetActiveSessions(count)

	if h.transcripts != nil {
		meta := &session.TranscriptMetadata{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.CreatedAt,
		}
		if err := h.transcripts.Backend().SaveTranscript(r.Context(), meta); err != nil {
			log.Printf("failed to create transcript %s: %v", s.ID, err)
		}
	}

	respondJSON(w, http.StatusCreated, createSessionResponse{SessionID: s.ID})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Reply   string `json:"reply"`
	State   string `json:"state"`
	Intent  string `json:"intent,omitempty"`
	OrderID string `json:"order_id,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		respondError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	h.mu.RLock()
	s, ok := h.sessions[req.SessionID]
	h.mu.RUnlock()
	if !ok {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}

	ctx, span := observability.StartSpan(r.Context(), "dialog.turn")
	defer span.End()

	start := time.Now()
	turn, err := h.engine.HandleMessage(ctx, s, req.Message)
	if err != nil {
		// Order-log write failures land here; nothing else does.
		log.Printf("turn failed for session %s: %v", req.SessionID, err)
		respondError(w, http.StatusInternalServerError, "failed to record order")
		return
	}
	observability.RecordMessage(string(turn.Intent), string(turn.State), time.Since(start))
	if turn.Order != nil {
		observability.RecordOrder(turn.Order.Total)
	}

	h.recordTurns(r, req, turn)

	resp := chatResponse{
		Reply:  turn.Reply,
		State:  string(turn.State),
		Intent: string(turn.Intent),
	}
	if turn.Order != nil {
		resp.OrderID = turn.Order.ID
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *Handler) recordTurns(r *http.Request, req chatRequest, turn *dialog.Turn) {
	if h.transcripts == nil {
		return
	}
	userTurn := &session.Turn{Role: "user", Text: req.Message, Intent: string(turn.Intent)}
	if err := h.transcripts.Record(r.Context(), req.SessionID, userTurn); err != nil {
		log.Printf("failed to record user turn for %s: %v", req.SessionID, err)
		return
	}
	botTurn := &session.Turn{Role: "assistant", Text: turn.Reply, State: string(turn.State)}
	if err := h.transcripts.Record(r.Context(), req.SessionID, botTurn); err != nil {
		log.Printf("failed to record assistant turn for %s: %v", req.SessionID, err)
	}
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	records, err := h.orders.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	respondJSON(w, http.StatusOK, records)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	record, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load order")
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var validStatuses = map[string]bool{
	order.StatusCreated:   true,
	order.StatusShipped:   true,
	order.StatusDelivered: true,
	order.StatusCancelled: true,
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validStatuses[req.Status] {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, req.Status); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": req.Status})
}
