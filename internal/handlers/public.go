package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/database"
	"tecnomadas-portal/internal/modal"
	"tecnomadas-portal/internal/models"
	"tecnomadas-portal/internal/notify"
	"tecnomadas-portal/internal/search"
)

// PublicHandler serves the catalog, the contact form and the active modal
type PublicHandler struct {
	store   *database.GormDB
	modals  *modal.Manager
	indexer search.Indexer
	gateway *notify.Gateway
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(store *database.GormDB, modals *modal.Manager, indexer search.Indexer, gateway *notify.Gateway) *PublicHandler {
	return &PublicHandler{store: store, modals: modals, indexer: indexer, gateway: gateway}
}

// Health reports the service and database status
func (h *PublicHandler) Health(c *gin.Context) {
	if sqlDB, err := h.store.DB().DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		respondError(c, apperr.New(apperr.KindUnavailable, "database unreachable"))
		return
	}
	respond(c, http.StatusOK, gin.H{"status": "ok"})
}

// ListProperties returns the active catalog. Any filter parameter switches
// to the filtered search.
func (h *PublicHandler) ListProperties(c *gin.Context) {
	filters, err := search.ParseFilters(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}

	var properties []models.Property
	if filters.IsEmpty() {
		properties, err = h.store.ListActiveProperties(c.Request.Context())
	} else {
		properties, err = h.store.SearchProperties(c.Request.Context(), filters)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, properties)
}

// GetProperty returns one active property
func (h *PublicHandler) GetProperty(c *gin.Context) {
	property, err := h.store.GetProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, property)
}

// Search runs a full-text query against the index and loads the matching
// active properties in ranking order.
func (h *PublicHandler) Search(c *gin.Context) {
	filters, err := search.ParseFilters(c.Request.URL.Query())
	if err != nil {
		respondError(c, err)
		return
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	result, err := h.indexer.Search(search.SearchRequest{
		Query:   strings.TrimSpace(c.Query("q")),
		Filters: filters,
		Limit:   int64(queryLimit(c, 20, 100)),
		Offset:  int64(offset),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	properties, err := h.store.GetActivePropertiesByIDs(c.Request.Context(), result.IDs())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"propiedades":     properties,
		"total":           result.TotalHits,
		"processing_time": result.ProcessingTime,
	})
}

// inquiryRequest is the public contact form
type inquiryRequest struct {
	Name       string  `json:"nombre_completo" validate:"required,max=255"`
	Phone      string  `json:"telefono" validate:"max=50"`
	Email      string  `json:"email" validate:"required,email,max=255"`
	Message    string  `json:"mensaje" validate:"max=5000"`
	PropertyID *string `json:"propiedad_id"`
}

// emailOutcome tells the front end what happened to the notification
type emailOutcome struct {
	Sent      bool   `json:"sent"`
	Simulated bool   `json:"simulated"`
	Message   string `json:"message,omitempty"`
}

// SubmitInquiry stores the inquiry, then notifies the operator and, when that
// worked, confirms to the submitter. Email failures do not fail the request.
func (h *PublicHandler) SubmitInquiry(c *gin.Context) {
	var req inquiryRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := checkStruct(req); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	inquiry, err := h.store.SubmitInquiry(ctx, &models.Inquiry{
		Name:       req.Name,
		Phone:      strings.TrimSpace(req.Phone),
		Email:      req.Email,
		Message:    strings.TrimSpace(req.Message),
		PropertyID: req.PropertyID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"consulta": inquiry,
		"email":    h.notify(ctx, inquiry),
	})
}

func (h *PublicHandler) notify(ctx context.Context, inquiry *models.Inquiry) emailOutcome {
	var property *models.Property
	if !inquiry.IsGeneral() {
		p, err := h.store.GetPropertyForAdmin(ctx, *inquiry.PropertyID)
		if err != nil {
			slog.Warn("inquiry property not loaded", "property_id", *inquiry.PropertyID, "error", err)
		} else {
			property = p
		}
	}

	res, err := h.gateway.NotifyInquiry(ctx, inquiry, property)
	if err != nil {
		slog.Warn("inquiry saved but notification failed", "inquiry_id", inquiry.ID, "error", err)
		return emailOutcome{Message: apperr.Message(err)}
	}

	if _, err := h.gateway.SendConfirmation(ctx, inquiry); err != nil {
		slog.Warn("confirmation email failed", "inquiry_id", inquiry.ID, "error", err)
	}
	return emailOutcome{Sent: true, Simulated: res.Simulated, Message: res.Message}
}

// ActiveModal returns the active promotional modal or null
func (h *PublicHandler) ActiveModal(c *gin.Context) {
	cfg, err := h.modals.GetActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if cfg == nil {
		respondNull(c)
		return
	}
	respond(c, http.StatusOK, cfg)
}
