// Package notify sends inquiry notifications and submitter confirmations
// through EmailJS.
package notify

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/models"
)

// GeneralInquiryLabel replaces the property id on general contact notices
const GeneralInquiryLabel = "Consulta general"

const confirmationMessage = "Gracias por contactarnos. Hemos recibido tu consulta y te responderemos a la brevedad."

// ErrBreakerOpen is returned while the circuit breaker rejects sends
var ErrBreakerOpen = apperr.New(apperr.KindUnavailable, "email delivery temporarily disabled")

// Result describes a finished send
type Result struct {
	Simulated bool   `json:"simulated"`
	Message   string `json:"message"`
}

// ConfigStatus reports which EmailJS settings are missing
type ConfigStatus struct {
	IsConfigured bool `json:"is_configured"`
	Missing      struct {
		ServiceID  bool `json:"service_id"`
		TemplateID bool `json:"template_id"`
		PublicKey  bool `json:"public_key"`
	} `json:"missing"`
	Breaker BreakerStatus `json:"breaker"`
}

// Gateway chooses the template and parameters for each notification.
// Without configuration every send is simulated and succeeds.
type Gateway struct {
	sender  Sender
	cfg     config.EmailConfig
	breaker *CircuitBreaker
}

// NewGateway creates a gateway over sender
func NewGateway(sender Sender, cfg config.EmailConfig) *Gateway {
	return &Gateway{
		sender:  sender,
		cfg:     cfg,
		breaker: NewCircuitBreaker(cfg.FailureThreshold, cfg.GetResetTimeout()),
	}
}

// Configured reports the configuration state
func (g *Gateway) Configured() ConfigStatus {
	var s ConfigStatus
	s.Missing.ServiceID = g.cfg.ServiceID == ""
	s.Missing.TemplateID = g.cfg.TemplateID == ""
	s.Missing.PublicKey = g.cfg.PublicKey == ""
	s.IsConfigured = !s.Missing.ServiceID && !s.Missing.TemplateID && !s.Missing.PublicKey
	s.Breaker = g.breaker.Status()
	return s
}

// NotifyInquiry tells the operator about a new inquiry. property may be nil;
// when the inquiry references a listing its details go into the
// property-inquiry template.
func (g *Gateway) NotifyInquiry(ctx context.Context, in *models.Inquiry, property *models.Property) (*Result, error) {
	if !g.Configured().IsConfigured {
		slog.Warn("email is not configured, simulating inquiry notice", "inquiry_id", in.ID)
		return &Result{Simulated: true, Message: "Email simulado enviado correctamente"}, nil
	}

	if in.IsGeneral() {
		params := g.baseParams(in)
		params["message"] = in.Message
		params["property_id"] = GeneralInquiryLabel
		if err := g.send(ctx, g.cfg.TemplateID, params); err != nil {
			return nil, err
		}
		return &Result{Message: "Email enviado correctamente"}, nil
	}

	params := g.baseParams(in)
	params["property_id"] = *in.PropertyID
	params["property_title"] = "Propiedad no especificada"
	params["property_price"] = ""
	params["property_location"] = ""
	if property != nil {
		params["property_title"] = property.Title
		if property.Price > 0 {
			params["property_price"] = FormatSoles(property.Price)
		}
		params["property_location"] = property.Location
	}
	params["message"] = in.Message
	if strings.TrimSpace(in.Message) == "" && property != nil {
		params["message"] = "Estoy interesado en la propiedad: " + property.Title
	}

	if err := g.send(ctx, g.cfg.PropertyInquiryTemplate, params); err != nil {
		return nil, err
	}
	return &Result{Message: "Consulta enviada correctamente"}, nil
}

// SendConfirmation thanks the submitter. It only needs the service id and
// public key to be configured.
func (g *Gateway) SendConfirmation(ctx context.Context, in *models.Inquiry) (*Result, error) {
	if g.cfg.ServiceID == "" || g.cfg.PublicKey == "" {
		return &Result{Simulated: true, Message: "Confirmación simulada"}, nil
	}

	params := map[string]string{
		"to_name":  in.Name,
		"to_email": in.Email,
		"message":  confirmationMessage,
	}
	if err := g.send(ctx, g.cfg.ConfirmationTemplate, params); err != nil {
		return nil, err
	}
	return &Result{Message: "Confirmación enviada"}, nil
}

func (g *Gateway) baseParams(in *models.Inquiry) map[string]string {
	return map[string]string{
		"from_name":  in.Name,
		"from_email": in.Email,
		"phone":      in.Phone,
		"to_name":    g.cfg.OperatorName,
		"reply_to":   in.Email,
	}
}

func (g *Gateway) send(ctx context.Context, templateID string, params map[string]string) error {
	if !g.breaker.CanProceed() {
		return ErrBreakerOpen
	}
	if err := g.sender.Send(ctx, templateID, params); err != nil {
		g.breaker.RecordFailure()
		slog.Error("email send failed", "template", templateID, "error", err)
		return apperr.Wrap(apperr.KindUnavailable, "email delivery failed", err)
	}
	g.breaker.RecordSuccess()
	return nil
}

// FormatSoles renders an amount the way the catalog shows prices,
// e.g. 1234567.5 as "S/ 1,234,567.5".
func FormatSoles(amount float64) string {
	raw := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac, _ := strings.Cut(raw, ".")
	frac = strings.TrimRight(frac, "0")

	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return "S/ " + out
}
