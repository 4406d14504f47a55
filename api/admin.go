package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// adminOnly gates the operator surface behind a bearer token with the
// admin userclass.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		tokenStr, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := VerifyToken(tokenStr, s.jwtSecret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if claims.Userclass != "admin" {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleFinishRound ends the running round. With a matching game id
// and multiplier the round crashes right there; otherwise only the
// crash point is rewritten. at is a multiplier scaled by 100, so 250
// ends the round at 2.50x.
func (s *Server) handleFinishRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GameID int64 `json:"game_id"`
		At     int64 `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	log.Printf("🛑 Admin finish round - game_id:%d at:%d", req.GameID, req.At)
	s.engine.FinishRound(req.GameID, req.At)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSetNextZero makes the next round crash instantly.
func (s *Server) handleSetNextZero(w http.ResponseWriter, r *http.Request) {
	log.Println("🛑 Admin set next round to instant crash")
	s.engine.SetNextZero()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCashOutAll force-cashes every live play at the given
// multiplier.
func (s *Server) handleCashOutAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		At int64 `json:"at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}
	if req.At < 100 {
		writeError(w, http.StatusBadRequest, "at must be 100 or higher")
		return
	}

	if err := s.engine.CashOutAll(r.Context(), req.At); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSetSetting upserts a named setting.
func (s *Server) handleSetSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "bad request body")
		return
	}

	if err := s.store.SetSetting(r.Context(), req.Name, req.Value); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update setting")
		return
	}
	log.Printf("⚙️ Setting updated - %s = %s", req.Name, req.Value)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
