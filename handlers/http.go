package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"guessr/services"
)

// APIHandler serves the read-only HTTP surface: health plus leaderboard and
// player stats lookups for dashboards.
type APIHandler struct {
	scoresService services.ScoresService
}

func NewAPIHandler(scoresService services.ScoresService) *APIHandler {
	return &APIHandler{scoresService: scoresService}
}

// RegisterRoutes mounts the handler's routes on the given router
func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/guilds/{guildID}/leaderboard", h.HandleGetLeaderboard).Methods(http.MethodGet)
	router.HandleFunc("/api/guilds/{guildID}/players/{playerID}", h.HandleGetPlayerStats).Methods(http.MethodGet)
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	guildID := vars["guildID"]
	log.Printf("🏆 Leaderboard request for guild %s from %s", guildID, r.RemoteAddr)

	limit := 0
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	leaderboard, err := h.scoresService.GetLeaderboard(r.Context(), guildID, limit)
	if err != nil {
		log.Printf("❌ Failed to get leaderboard for guild %s: %v", guildID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, leaderboard)
}

func (h *APIHandler) HandleGetPlayerStats(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	guildID := vars["guildID"]
	playerID := vars["playerID"]
	log.Printf("📊 Player stats request for %s in guild %s from %s", playerID, guildID, r.RemoteAddr)

	maybeStats, err := h.scoresService.GetPlayerStats(r.Context(), guildID, playerID)
	if err != nil {
		log.Printf("❌ Failed to get stats for player %s in guild %s: %v", playerID, guildID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	stats, ok := maybeStats.Get()
	if !ok {
		http.Error(w, "player not found", http.StatusNotFound)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, stats)
}

func (h *APIHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("❌ Failed to encode JSON response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
