package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JuanGomePer/chatgpt2025/internal/domain"
	"github.com/JuanGomePer/chatgpt2025/internal/identity"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse mirrors the Firebase-style auth result: access token plus
// the signed-in identity.
type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	Identity    *domain.Identity `json:"identity"`
}

func handleRegister(idsvc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		resp, err := idsvc.SignUp(r.Context(), identity.Credentials{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			status := http.StatusBadRequest
			if !errors.Is(err, domain.ErrEmailTaken) && !errors.Is(err, domain.ErrInvalidInput) {
				status = http.StatusInternalServerError
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}

		// Registration signs the account in immediately.
		writeJSON(w, http.StatusCreated, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			Identity:    resp.Identity,
		})
	}
}

func handleLogin(idsvc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}

		resp, err := idsvc.SignIn(r.Context(), identity.Credentials{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				status = http.StatusInternalServerError
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: resp.AccessToken,
			TokenType:   resp.TokenType,
			Identity:    resp.Identity,
		})
	}
}

func handleLogout(idsvc *identity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := CurrentIdentity(r)
		if ident == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		if err := idsvc.SignOut(ident.UID); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident := CurrentIdentity(r)
		if ident == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, ident)
	}
}
