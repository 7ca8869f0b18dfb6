package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/session"
)

// AuthHandler handles the administrator login cookie
type AuthHandler struct {
	sessions *session.Manager
	cookies  cookieSessions
}

// newAuthHandler creates a new auth handler
func newAuthHandler(mgr *session.Manager, cookies cookieSessions) *AuthHandler {
	return &AuthHandler{sessions: mgr, cookies: cookies}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login checks the credentials and sets the session cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := checkStruct(req); err != nil {
		respondError(c, err)
		return
	}

	store := h.cookies.open(c)
	info, err := h.sessions.Login(store, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := store.Save(c.Request, c.Writer); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "could not save session", err))
		return
	}
	respond(c, http.StatusOK, info)
}

// Logout clears the session cookie. It succeeds without a session too.
func (h *AuthHandler) Logout(c *gin.Context) {
	store := h.cookies.open(c)
	h.sessions.Logout(store)
	if err := store.Save(c.Request, c.Writer); err != nil {
		respondError(c, apperr.Wrap(apperr.KindInternal, "could not clear session", err))
		return
	}
	respond(c, http.StatusOK, gin.H{"logged_out": true})
}

// Session reports the current session, or null when logged out
func (h *AuthHandler) Session(c *gin.Context) {
	store := h.cookies.open(c)
	info := h.sessions.Info(store)
	_ = store.Save(c.Request, c.Writer)
	if info == nil {
		respondNull(c)
		return
	}
	respond(c, http.StatusOK, info)
}
