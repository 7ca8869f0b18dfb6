// Package handlers exposes the catalog, contact form and back office over
// HTTP. Every response uses the {success, data, error} envelope.
package handlers

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/database"
	"tecnomadas-portal/internal/modal"
	"tecnomadas-portal/internal/notify"
	"tecnomadas-portal/internal/ratelimit"
	"tecnomadas-portal/internal/search"
	"tecnomadas-portal/internal/session"
)

// Deps are the services the router dispatches to
type Deps struct {
	Config    *config.Config
	Store     *database.GormDB
	Modals    *modal.Manager
	Sessions  *session.Manager
	Cookies   *sessions.CookieStore
	Indexer   search.Indexer
	Reindexer Reindexer
	Gateway   *notify.Gateway
	Limiter   *ratelimit.RateLimiter
}

// NewRouter builds the gin engine with every route registered
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = d.Config.Server.AllowedOrigins
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowCredentials = true
	if len(corsCfg.AllowOrigins) == 0 {
		corsCfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(corsCfg))

	cookies := cookieSessions{factory: d.Cookies, name: d.Config.Admin.CookieName}
	if cookies.name == "" {
		cookies.name = "tecnomadas_admin"
	}

	public := NewPublicHandler(d.Store, d.Modals, d.Indexer, d.Gateway)
	auth := newAuthHandler(d.Sessions, cookies)
	admin := NewAdminHandler(d)

	r.GET("/health", public.Health)

	api := r.Group("/api")
	api.GET("/properties", public.ListProperties)
	api.GET("/properties/:id", public.GetProperty)
	api.GET("/search", public.Search)
	api.POST("/inquiries", rateLimitMiddleware(d.Limiter), public.SubmitInquiry)
	api.GET("/modal/active", public.ActiveModal)

	api.POST("/admin/login", auth.Login)
	api.POST("/admin/logout", auth.Logout)
	api.GET("/admin/session", auth.Session)

	adm := api.Group("/admin", requireAdmin(d.Sessions, cookies))
	adm.GET("/properties", admin.ListProperties)
	adm.POST("/properties", admin.CreateProperty)
	adm.GET("/properties/:id", admin.GetProperty)
	adm.PUT("/properties/:id", admin.UpdateProperty)
	adm.DELETE("/properties/:id", admin.DeleteProperty)
	adm.DELETE("/properties/:id/permanent", admin.PurgeProperty)
	adm.GET("/properties/:id/history", admin.GetPropertyHistory)
	adm.GET("/changes/recent", admin.GetRecentChanges)

	adm.GET("/inquiries", admin.ListInquiries)

	adm.GET("/modals", admin.ListModals)
	adm.POST("/modals", admin.CreateModal)
	adm.PUT("/modals/:id", admin.UpdateModal)
	adm.PATCH("/modals/:id/active", admin.SetModalActive)
	adm.DELETE("/modals/:id", admin.DeleteModal)

	adm.GET("/stats", admin.GetStats)
	adm.POST("/cleanup/run", admin.RunCleanup)
	adm.GET("/cleanup/logs", admin.GetDeleteLogs)
	adm.POST("/search/reindex", admin.Reindex)
	adm.GET("/email/status", admin.EmailStatus)

	return r
}
