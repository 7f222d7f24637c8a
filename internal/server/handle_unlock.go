package server

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type UnlockRequest struct {
	Code string `json:"code"`
}

type UnlockResponse struct {
	Token string `json:"token"`
}

// handleUnlock is the passcode gate: a correct 4-digit code mints a
// session token required by every game route.
func handleUnlock(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UnlockRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Code = strings.TrimSpace(req.Code)
		if !isFourDigits(req.Code) {
			writeError(w, http.StatusBadRequest, "code must be exactly 4 digits")
			return
		}

		if err := bcrypt.CompareHashAndPassword(app.passcodeHash, []byte(req.Code)); err != nil {
			writeError(w, http.StatusUnauthorized, "incorrect passcode")
			return
		}

		token := uuid.NewString()
		app.sessions.add(token)
		writeJSON(w, http.StatusOK, UnlockResponse{Token: token})
	}
}

func isFourDigits(code string) bool {
	if len(code) != 4 {
		return false
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
