package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spinroom/spinroom/go/internal/models"
)

// HistoryProvider defines what the gateway needs from the history layer.
type HistoryProvider interface {
	ListByParticipant(ctx context.Context, username string, limit int) ([]models.LotteryRecord, error)
}

// HistoryHandler serves the read-only lottery history. Display-only, never
// authoritative: the coordination core does not read it back.
type HistoryHandler struct {
	provider HistoryProvider
}

const historyPageSize = 50

// NewHistoryHandler creates a history handler.
func NewHistoryHandler(provider HistoryProvider) *HistoryHandler {
	return &HistoryHandler{provider: provider}
}

// HandleListLotteries serves GET /lotteries/{username}: the past rounds the
// user took part in, newest first.
func (h *HistoryHandler) HandleListLotteries(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	records, err := h.provider.ListByParticipant(r.Context(), username, historyPageSize)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to list lottery history")
		http.Error(w, "failed to list lotteries", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.LotteryRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.Error().Err(err).Msg("failed to write lottery history response")
	}
}

// RegisterRoutes registers history routes with an HTTP mux.
func (h *HistoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /lotteries/{username}", h.HandleListLotteries)
}
