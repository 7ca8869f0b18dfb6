// Package modal manages the promotional popup configurations. At most one
// configuration is active at any time.
package modal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/database"
	"tecnomadas-portal/internal/models"
)

// Input is the admin payload for create and update
type Input struct {
	Title           string           `json:"titulo" validate:"required,max=255"`
	Content         string           `json:"contenido"`
	ImageURL        *string          `json:"imagen_url" validate:"omitempty,url"`
	BackgroundColor string           `json:"color_fondo" validate:"omitempty,hexcolor"`
	TextColor       string           `json:"color_texto" validate:"omitempty,hexcolor"`
	Size            models.ModalSize `json:"tamaño" validate:"omitempty,oneof=pequeño mediano grande"`
	Active          bool             `json:"activo"`
}

// Manager serializes every modal mutation through one mutex and runs each
// one in a single transaction.
type Manager struct {
	mu       sync.Mutex
	db       *gorm.DB
	now      func() time.Time
	validate *validator.Validate
}

// Option customizes a Manager
type Option func(*Manager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a modal manager over db
func NewManager(db *gorm.DB, opts ...Option) *Manager {
	m := &Manager{
		db:       db,
		now:      func() time.Time { return time.Now().UTC() },
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create stores a new configuration. When it is active every other row is
// deactivated first.
func (m *Manager) Create(ctx context.Context, in Input) (*models.ModalConfig, error) {
	if err := m.check(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := in.apply(&models.ModalConfig{})
	cfg.CreatedAt = m.now()

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cfg.Active {
			if err := deactivateAll(tx, ""); err != nil {
				return err
			}
		}
		// Select("*") so an explicit false is written instead of the column default
		return tx.Select("*").Create(cfg).Error
	})
	if err != nil {
		return nil, database.Classify(err, "create modal")
	}

	slog.Info("modal created", "modal_id", cfg.ID, "active", cfg.Active)
	return cfg, nil
}

// Update overwrites every field of configuration id
func (m *Manager) Update(ctx context.Context, id string, in Input) (*models.ModalConfig, error) {
	if err := m.check(in); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg models.ModalConfig
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&cfg).Error; err != nil {
			return err
		}
		if in.Active {
			if err := deactivateAll(tx, id); err != nil {
				return err
			}
		}

		in.apply(&cfg)
		now := m.now()
		cfg.UpdatedAt = &now
		return tx.Select("*").Omit("id", "created_at").Updates(&cfg).Error
	})
	if err != nil {
		return nil, database.Classify(err, "update modal", "modal_id", id)
	}

	slog.Info("modal updated", "modal_id", id, "active", cfg.Active)
	return &cfg, nil
}

// Toggle sets the active flag of configuration id. Activating clears every
// other row; deactivating touches only this one.
func (m *Manager) Toggle(ctx context.Context, id string, active bool) (*models.ModalConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg models.ModalConfig
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&cfg).Error; err != nil {
			return err
		}
		if active {
			if err := deactivateAll(tx, id); err != nil {
				return err
			}
		}

		now := m.now()
		cfg.Active = active
		cfg.UpdatedAt = &now
		return tx.Model(&models.ModalConfig{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"active":     active,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return nil, database.Classify(err, "toggle modal", "modal_id", id)
	}

	slog.Info("modal toggled", "modal_id", id, "active", active)
	return &cfg, nil
}

// Delete removes configuration id and returns the deleted row
func (m *Manager) Delete(ctx context.Context, id string) (*models.ModalConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var cfg models.ModalConfig
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&cfg).Error; err != nil {
			return err
		}
		return tx.Delete(&cfg).Error
	})
	if err != nil {
		return nil, database.Classify(err, "delete modal", "modal_id", id)
	}

	slog.Info("modal deleted", "modal_id", id)
	return &cfg, nil
}

// GetActive returns the active configuration, or nil when none is active
func (m *Manager) GetActive(ctx context.Context) (*models.ModalConfig, error) {
	var cfg models.ModalConfig
	err := m.db.WithContext(ctx).
		Where("active = ?", true).
		Order("created_at DESC").
		First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Classify(err, "get active modal")
	}
	return &cfg, nil
}

// ListAll returns every configuration, newest first
func (m *Manager) ListAll(ctx context.Context) ([]models.ModalConfig, error) {
	configs := []models.ModalConfig{}
	err := m.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&configs).Error
	if err != nil {
		return nil, database.Classify(err, "list modals")
	}
	return configs, nil
}

func (m *Manager) check(in Input) error {
	err := m.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
		}
		return apperr.Validationf("invalid modal: %s", strings.Join(fields, ", "))
	}
	return apperr.Wrap(apperr.KindValidation, "invalid modal", err)
}

// apply copies the input onto cfg, filling defaults for blank colors and size
func (in Input) apply(cfg *models.ModalConfig) *models.ModalConfig {
	cfg.Title = strings.TrimSpace(in.Title)
	cfg.Content = SanitizeContent(in.Content)
	cfg.ImageURL = nil
	if in.ImageURL != nil && strings.TrimSpace(*in.ImageURL) != "" {
		u := strings.TrimSpace(*in.ImageURL)
		cfg.ImageURL = &u
	}
	cfg.BackgroundColor = in.BackgroundColor
	if cfg.BackgroundColor == "" {
		cfg.BackgroundColor = models.DefaultModalBackground
	}
	cfg.TextColor = in.TextColor
	if cfg.TextColor == "" {
		cfg.TextColor = models.DefaultModalText
	}
	cfg.Size = in.Size
	if cfg.Size == "" {
		cfg.Size = models.ModalSizeMedium
	}
	cfg.Active = in.Active
	return cfg
}

// deactivateAll clears the active flag on every row except keepID
func deactivateAll(tx *gorm.DB, keepID string) error {
	q := tx.Model(&models.ModalConfig{}).Where("active = ?", true)
	if keepID != "" {
		q = q.Where("id <> ?", keepID)
	}
	return q.Update("active", false).Error
}
