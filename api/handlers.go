package api

import (
	"net/http"
	"strconv"

	"goCrashServer/config"
	"goCrashServer/crypto"
	"goCrashServer/game"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleGameInfo serves the public snapshot of the current round.
func (s *Server) handleGameInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Info())
}

// handleHistory serves the latest finished rounds, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := int64(config.HistoryLimit)
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.ParseInt(q, 10, 64); err == nil && n > 0 && n <= config.HistoryLimit {
			limit = n
		}
	}

	records, err := s.store.RecentHistory(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.Leaderboard(r.Context(), config.LeaderboardSize)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleVerify recomputes a round's crash point from its revealed
// hash, so players can check the round was fair.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if len(hash) != 64 {
		writeError(w, http.StatusBadRequest, "hash must be 64 hex characters")
		return
	}

	resp := map[string]any{
		"hash":       hash,
		"game_crash": game.CrashPointFromHash(hash),
	}

	// With the previous round's hash the chain link can be checked too.
	if prev := r.URL.Query().Get("prev_hash"); len(prev) == 64 {
		resp["chain_ok"] = crypto.VerifyHashChain(hash, prev)
	}

	writeJSON(w, http.StatusOK, resp)
}
