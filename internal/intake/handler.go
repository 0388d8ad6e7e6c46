package intake

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicflow/intake-ai/pkg/logging"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	LastInput string `json:"last_input"`
}

// ChatResponse is the bot reply. VisitingCardHTML is present only when the
// conversation completes with a confirmed booking.
type ChatResponse struct {
	BotMessage       string `json:"bot_message"`
	VisitingCardHTML string `json:"visiting_card_html,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler wires HTTP requests to the conversation machine.
type Handler struct {
	machine *Machine
	logger  *logging.Logger
}

// NewHandler creates an intake handler.
func NewHandler(machine *Machine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		machine: machine,
		logger:  logger,
	}
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode chat request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	reply, err := h.machine.HandleMessage(r.Context(), req.UserID, req.LastInput)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingUserID):
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		case errors.Is(err, ErrMissingInput):
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "last_input is required"})
		default:
			h.logger.Error("failed to handle chat message", "user_id", req.UserID, "error", err)
			h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		}
		return
	}

	h.writeJSON(w, http.StatusOK, ChatResponse{
		BotMessage:       reply.Text,
		VisitingCardHTML: reply.CardHTML,
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
