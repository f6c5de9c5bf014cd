// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mrtonymu/bigtwo-sub001/internal/database"
	"github.com/mrtonymu/bigtwo-sub001/internal/game"
	"github.com/sirupsen/logrus"
)

// sessionCookieName carries the player's signed session token.
const sessionCookieName = "bigtwo_session"

// extractCookieToken extracts a named cookie value from the "Cookie"
// header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error to its HTTP status and a reason-code body, so
// clients can always distinguish "not your turn" from "invalid play" from
// storage problems.
func writeError(w http.ResponseWriter, err error) {
	var rej *game.Rejection
	if errors.As(err, &rej) {
		status := http.StatusUnprocessableEntity
		switch rej.Code {
		case game.CodeStaleTurn:
			status = http.StatusConflict
		case game.CodeNotYourTurn, game.CodeNotHost:
			status = http.StatusForbidden
		case game.CodeCorruptDeck:
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, rej)
		return
	}
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "not_found", "message": err.Error()})
	case errors.Is(err, database.ErrStaleTurn):
		writeJSON(w, http.StatusConflict, map[string]string{"code": string(game.CodeStaleTurn), "message": err.Error()})
	case errors.Is(err, database.ErrCorruptRow):
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "corrupt_row", "message": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "internal", "message": err.Error()})
	}
}

// marshalEvent marshals a GameEvent into JSON bytes, logging a warning and
// returning empty JSON on error so downstream writers never crash.
func marshalEvent(ev game.GameEvent, logger *logrus.Logger) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Warnf("failed to marshal GameEvent type %s: %v", ev.Type, err)
		return []byte("{}")
	}
	return data
}
