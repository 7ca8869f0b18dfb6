package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/cleanup"
	"tecnomadas-portal/internal/database"
	"tecnomadas-portal/internal/history"
	"tecnomadas-portal/internal/media"
	"tecnomadas-portal/internal/modal"
	"tecnomadas-portal/internal/models"
	"tecnomadas-portal/internal/notify"
	"tecnomadas-portal/internal/ratelimit"
	"tecnomadas-portal/internal/search"
)

// Reindexer rebuilds the search index from the catalog
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// AdminHandler handles back-office requests
type AdminHandler struct {
	store      *database.GormDB
	modals     *modal.Manager
	history    *history.Service
	cleanup    *cleanup.Service
	cleanupCfg cleanup.Config
	indexer    search.Indexer
	reindexer  Reindexer
	gateway    *notify.Gateway
	limiter    *ratelimit.RateLimiter
	maxUpload  int64
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(d Deps) *AdminHandler {
	maxUpload := int64(d.Config.Images.MaxBytes)
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	return &AdminHandler{
		store:      d.Store,
		modals:     d.Modals,
		history:    history.NewService(d.Store.DB()),
		cleanup:    cleanup.NewService(d.Store),
		cleanupCfg: cleanup.ConfigFrom(d.Config.Scheduler),
		indexer:    d.Indexer,
		reindexer:  d.Reindexer,
		gateway:    d.Gateway,
		limiter:    d.Limiter,
		maxUpload:  maxUpload,
	}
}

// propertyRequest is the JSON create/update payload. A missing or empty
// imagenes list leaves stored images alone on update.
type propertyRequest struct {
	models.PropertyForm
	Images []media.Upload `json:"imagenes"`
}

// bindProperty reads the property form from JSON or multipart input.
// Multipart forms carry image links in imagen_urls and files in imagenes.
func (h *AdminHandler) bindProperty(c *gin.Context) (*models.Property, []media.Upload, error) {
	var req propertyRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := h.readMultipart(c, &req); err != nil {
			return nil, nil, err
		}
	} else if err := bindJSON(c, &req); err != nil {
		return nil, nil, err
	}

	property, err := req.Parse(h.store.Now())
	if err != nil {
		return nil, nil, err
	}
	return property, req.Images, nil
}

func (h *AdminHandler) readMultipart(c *gin.Context, req *propertyRequest) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid multipart form", err)
	}
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	f := &req.PropertyForm
	f.Title = value("titulo")
	f.Description = value("descripcion")
	f.Type = value("tipo_propiedad")
	f.Location = value("ubicacion")
	f.Price = models.FormValue(value("precio"))
	f.PriceUSD = models.FormValue(value("precio_usd"))
	f.TotalArea = models.FormValue(value("area_total"))
	f.Bedrooms = models.FormValue(value("dormitorios"))
	f.Bathrooms = models.FormValue(value("banos"))
	f.ParkingSpots = models.FormValue(value("estacionamientos"))
	f.YearBuilt = models.FormValue(value("ano_construccion"))

	if raw := value("caracteristicas"); raw != "" {
		quoted, _ := json.Marshal(raw)
		if err := f.Features.UnmarshalJSON(quoted); err != nil {
			return apperr.Wrap(apperr.KindValidation, "invalid caracteristicas", err)
		}
	}
	if raw := value("coordenadas"); raw != "" {
		var coords models.Coordinates
		if err := json.Unmarshal([]byte(raw), &coords); err != nil {
			return apperr.Wrap(apperr.KindValidation, "invalid coordenadas", err)
		}
		f.Coordinates = &coords
	}

	for _, u := range form.Value["imagen_urls"] {
		if u = strings.TrimSpace(u); u != "" {
			req.Images = append(req.Images, media.Upload{URL: u})
		}
	}
	for _, fh := range form.File["imagenes"] {
		data, err := h.readFile(fh)
		if err != nil {
			return err
		}
		req.Images = append(req.Images, media.Upload{Filename: fh.Filename, Data: data})
	}
	return nil
}

func (h *AdminHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > h.maxUpload {
		return nil, apperr.Validationf("image %s exceeds %d bytes", fh.Filename, h.maxUpload)
	}
	file, err := fh.Open()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "unreadable upload", err)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "unreadable upload", err)
	}
	if int64(len(data)) > h.maxUpload {
		return nil, apperr.Validationf("image %s exceeds %d bytes", fh.Filename, h.maxUpload)
	}
	return data, nil
}

// ListProperties returns every property, active or not
func (h *AdminHandler) ListProperties(c *gin.Context) {
	properties, err := h.store.ListPropertiesForAdmin(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, properties)
}

// GetProperty returns one property regardless of its active flag
func (h *AdminHandler) GetProperty(c *gin.Context) {
	property, err := h.store.GetPropertyForAdmin(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, property)
}

// CreateProperty stores a new listing with its images
func (h *AdminHandler) CreateProperty(c *gin.Context) {
	property, uploads, err := h.bindProperty(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	created, err := h.store.CreateProperty(ctx, property, uploads)
	if err != nil {
		respondError(c, err)
		return
	}

	// the index needs the stored images, which the created row does not carry
	indexed, err := h.store.GetPropertyForAdmin(ctx, created.ID)
	if err != nil {
		slog.Warn("reload for indexing failed", "property_id", created.ID, "error", err)
		indexed = created
	}
	search.Sync(h.indexer, indexed)
	respond(c, http.StatusCreated, created)
}

// UpdateProperty overwrites a listing, replacing its images when new ones
// are posted
func (h *AdminHandler) UpdateProperty(c *gin.Context) {
	property, uploads, err := h.bindProperty(c)
	if err != nil {
		respondError(c, err)
		return
	}

	updated, err := h.store.UpdateProperty(c.Request.Context(), c.Param("id"), property, uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	search.Sync(h.indexer, updated)
	respond(c, http.StatusOK, updated)
}

// DeleteProperty hides a listing from the public site
func (h *AdminHandler) DeleteProperty(c *gin.Context) {
	property, err := h.store.SoftDeleteProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	search.Sync(h.indexer, property)
	respond(c, http.StatusOK, property)
}

// PurgeProperty removes a listing and its images for good
func (h *AdminHandler) PurgeProperty(c *gin.Context) {
	id := c.Param("id")
	entry, err := h.store.HardDeleteProperty(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.indexer.DeleteProperty(id); err != nil {
		slog.Warn("search index update failed", "property_id", id, "error", err)
	}
	slog.Info("admin purged property", "property_id", id, "admin", c.GetString(ctxEmail))
	respond(c, http.StatusOK, entry)
}

// GetPropertyHistory returns the recorded changes of a property
func (h *AdminHandler) GetPropertyHistory(c *gin.Context) {
	propertyID := c.Param("id")
	changes, err := h.history.ForProperty(c.Request.Context(), propertyID, queryLimit(c, 50, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"property_id": propertyID,
		"changes":     changes,
		"count":       len(changes),
	})
}

// GetRecentChanges returns the latest changes across the catalog
func (h *AdminHandler) GetRecentChanges(c *gin.Context) {
	changes, err := h.history.Recent(c.Request.Context(), queryLimit(c, 100, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"changes": changes,
		"count":   len(changes),
	})
}

// ListInquiries returns every inquiry newest first
func (h *AdminHandler) ListInquiries(c *gin.Context) {
	inquiries, err := h.store.ListInquiries(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, inquiries)
}

// ListModals returns every modal configuration
func (h *AdminHandler) ListModals(c *gin.Context) {
	configs, err := h.modals.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, configs)
}

// CreateModal stores a new modal configuration
func (h *AdminHandler) CreateModal(c *gin.Context) {
	var in modal.Input
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	cfg, err := h.modals.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, cfg)
}

// UpdateModal overwrites a modal configuration
func (h *AdminHandler) UpdateModal(c *gin.Context) {
	var in modal.Input
	if err := bindJSON(c, &in); err != nil {
		respondError(c, err)
		return
	}
	cfg, err := h.modals.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cfg)
}

// SetModalActive switches a modal on or off
func (h *AdminHandler) SetModalActive(c *gin.Context) {
	var req struct {
		Active *bool `json:"activo" validate:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := checkStruct(req); err != nil {
		respondError(c, err)
		return
	}
	cfg, err := h.modals.Toggle(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cfg)
}

// DeleteModal removes a modal configuration
func (h *AdminHandler) DeleteModal(c *gin.Context) {
	cfg, err := h.modals.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, cfg)
}

// GetStats returns catalog statistics
func (h *AdminHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := h.store.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	out := gin.H{"catalog": stats}
	deleteStats, err := h.cleanup.GetDeleteStats(ctx, h.cleanupCfg.RetentionDays)
	if err != nil {
		slog.Warn("delete stats unavailable", "error", err)
	} else {
		out["deletions"] = deleteStats
	}
	if h.limiter != nil {
		out["rate_limit"] = h.limiter.GetStats()
	}
	respond(c, http.StatusOK, out)
}

// RunCleanup purges inactive listings past the retention period. Without an
// explicit dry_run false it only reports what would be deleted.
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	var req struct {
		RetentionDays int   `json:"retention_days" validate:"gte=0"`
		MaxDeletions  int   `json:"max_deletions" validate:"gte=0"`
		DryRun        *bool `json:"dry_run"`
	}
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := checkStruct(req); err != nil {
		respondError(c, err)
		return
	}

	cfg := h.cleanupCfg
	if req.RetentionDays > 0 {
		cfg.RetentionDays = req.RetentionDays
	}
	if req.MaxDeletions > 0 {
		cfg.MaxDeletionCount = req.MaxDeletions
	}
	cfg.DryRun = req.DryRun == nil || *req.DryRun

	slog.Info("admin cleanup requested",
		"admin", c.GetString(ctxEmail),
		"retention_days", cfg.RetentionDays,
		"dry_run", cfg.DryRun)
	result, err := h.cleanup.Run(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	if !result.DryRun {
		for _, id := range result.DeletedProperties {
			if err := h.indexer.DeleteProperty(id); err != nil {
				slog.Warn("search index update failed", "property_id", id, "error", err)
			}
		}
	}
	respond(c, http.StatusOK, result)
}

// GetDeleteLogs returns recent delete log entries
func (h *AdminHandler) GetDeleteLogs(c *gin.Context) {
	logs, err := h.cleanup.GetRecentDeleteLogs(c.Request.Context(), queryLimit(c, 100, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"logs":  logs,
		"count": len(logs),
	})
}

// Reindex rebuilds the search index now
func (h *AdminHandler) Reindex(c *gin.Context) {
	if err := h.reindexer.Reindex(c.Request.Context()); err != nil {
		respondError(c, apperr.Wrap(apperr.KindUnavailable, "search reindex failed", err))
		return
	}
	respond(c, http.StatusOK, gin.H{"reindexed": true})
}

// EmailStatus reports the notification configuration
func (h *AdminHandler) EmailStatus(c *gin.Context) {
	respond(c, http.StatusOK, h.gateway.Configured())
}
