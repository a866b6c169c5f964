package auth

import (
	"fmt"
	"net/http"
	"time"

	apperrors "slotly/pkg/errors"
	httputil "slotly/pkg/http"
	"slotly/pkg/logger"
	"slotly/pkg/model"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const stateCookieName = "oauth_state"

type LoginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthHandler struct {
	service     AuthService
	frontendURL string
	log         *logger.Logger
}

func NewAuthHandler(service AuthService, frontendURL string, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service:     service,
		frontendURL: frontendURL,
		log:         log,
	}
}

// Login redirects the browser to the Google consent page. The state nonce
// is stored in a short-lived cookie and verified on callback.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.service.AuthURL(state), http.StatusTemporaryRedirect)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		h.log.Warn("Rejected OAuth callback with mismatched state", "path", r.URL.Path)
		h.writeError(w, apperrors.Unauthorized("Invalid OAuth state"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.writeError(w, apperrors.InvalidInput("Missing authorization code"))
		return
	}

	sessionToken, user, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Clear the state cookie once consumed.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	if h.frontendURL != "" {
		http.Redirect(w, r, fmt.Sprintf("%s/auth/callback?token=%s", h.frontendURL, sessionToken), http.StatusTemporaryRedirect)
		return
	}

	if err := httputil.WriteSuccess(w, LoginResponse{Token: sessionToken, User: user}); err != nil {
		h.log.Error("failed to write success response", "handler", "Callback", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Callback", "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/auth/google/login", h.Login)
	router.GET("/auth/google/callback", h.Callback)
}
