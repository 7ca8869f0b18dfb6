package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/ratelimit"
	"tecnomadas-portal/internal/session"
)

// ctxEmail holds the email of the authenticated administrator
const ctxEmail = "admin_email"

// rateLimitMiddleware refuses requests over the per-client limits with 429
func rateLimitMiddleware(limiter *ratelimit.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ok, wait := limiter.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			respondError(c, apperr.New(apperr.KindRateLimited, "Demasiadas consultas. Intenta nuevamente más tarde."))
			return
		}
		c.Next()
	}
}

// cookieSessions opens the admin cookie for each request
type cookieSessions struct {
	factory *sessions.CookieStore
	name    string
}

func (cs cookieSessions) open(c *gin.Context) *session.CookieStore {
	return session.OpenCookie(cs.factory, c.Request, cs.name)
}

// requireAdmin lets the request through only with a valid, unexpired admin
// session. An expired cookie is cleared on the way out.
func requireAdmin(mgr *session.Manager, cs cookieSessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		store := cs.open(c)
		info := mgr.Info(store)
		if info == nil {
			_ = store.Save(c.Request, c.Writer)
			respondError(c, apperr.New(apperr.KindUnauthorized, "Sesión no válida o expirada"))
			return
		}
		c.Set(ctxEmail, info.Email)
		c.Next()
	}
}
