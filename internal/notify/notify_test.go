package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tecnomadas-portal/internal/apperr"
	"tecnomadas-portal/internal/config"
	"tecnomadas-portal/internal/models"
)

type sentEmail struct {
	template string
	params   map[string]string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) Send(_ context.Context, templateID string, params map[string]string) error {
	f.sent = append(f.sent, sentEmail{template: templateID, params: params})
	return f.err
}

func testEmailConfig() config.EmailConfig {
	cfg := config.DefaultConfig().Email
	cfg.ServiceID = "service_1"
	cfg.TemplateID = "template_general"
	cfg.PublicKey = "public"
	return cfg
}

func TestNotifyGeneralInquiry(t *testing.T) {
	sender := &fakeSender{}
	g := NewGateway(sender, testEmailConfig())

	res, err := g.NotifyInquiry(context.Background(), &models.Inquiry{
		Name: "Ana", Email: "ana@example.com", Phone: "999", Message: "Hola",
	}, nil)
	require.NoError(t, err)
	assert.False(t, res.Simulated)

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	assert.Equal(t, "template_general", got.template)
	assert.Equal(t, "Ana", got.params["from_name"])
	assert.Equal(t, "ana@example.com", got.params["reply_to"])
	assert.Equal(t, GeneralInquiryLabel, got.params["property_id"])
	assert.Equal(t, "Equipo Tecnomadas", got.params["to_name"])
	assert.Equal(t, "Hola", got.params["message"])
}

func TestNotifyPropertyInquiry(t *testing.T) {
	sender := &fakeSender{}
	g := NewGateway(sender, testEmailConfig())

	pid := "p-1"
	_, err := g.NotifyInquiry(context.Background(), &models.Inquiry{
		Name: "Luis", Email: "luis@example.com", PropertyID: &pid,
	}, &models.Property{Title: "Casa Sol", Price: 200000, Location: "Lima"})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	assert.Equal(t, "template_property_inquiry", got.template)
	assert.Equal(t, "p-1", got.params["property_id"])
	assert.Equal(t, "Casa Sol", got.params["property_title"])
	assert.Equal(t, "S/ 200,000", got.params["property_price"])
	assert.Equal(t, "Lima", got.params["property_location"])
	assert.Equal(t, "Estoy interesado en la propiedad: Casa Sol", got.params["message"])
}

func TestNotifyPropertyInquiryWithoutListing(t *testing.T) {
	sender := &fakeSender{}
	g := NewGateway(sender, testEmailConfig())

	pid := "gone"
	_, err := g.NotifyInquiry(context.Background(), &models.Inquiry{
		Name: "Luis", Email: "luis@example.com", PropertyID: &pid, Message: "Sigue disponible?",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Propiedad no especificada", sender.sent[0].params["property_title"])
	assert.Equal(t, "Sigue disponible?", sender.sent[0].params["message"])
}

func TestUnconfiguredIsSimulated(t *testing.T) {
	sender := &fakeSender{}
	cfg := testEmailConfig()
	cfg.TemplateID = ""
	g := NewGateway(sender, cfg)

	status := g.Configured()
	assert.False(t, status.IsConfigured)
	assert.True(t, status.Missing.TemplateID)
	assert.False(t, status.Missing.ServiceID)

	res, err := g.NotifyInquiry(context.Background(), &models.Inquiry{Name: "A", Email: "a@example.com"}, nil)
	require.NoError(t, err)
	assert.True(t, res.Simulated)
	assert.Empty(t, sender.sent)

	// confirmation only needs the service id and public key
	res, err = g.SendConfirmation(context.Background(), &models.Inquiry{Name: "A", Email: "a@example.com"})
	require.NoError(t, err)
	assert.False(t, res.Simulated)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "template_confirmation", sender.sent[0].template)
	assert.Equal(t, "a@example.com", sender.sent[0].params["to_email"])
	assert.Equal(t, confirmationMessage, sender.sent[0].params["message"])
}

func TestSendFailureOpensBreaker(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	g := NewGateway(sender, testEmailConfig())
	in := &models.Inquiry{Name: "A", Email: "a@example.com"}

	for i := 0; i < 3; i++ {
		_, err := g.NotifyInquiry(context.Background(), in, nil)
		assert.ErrorIs(t, err, apperr.Unavailable)
	}
	assert.True(t, g.Configured().Breaker.Open)

	_, err := g.NotifyInquiry(context.Background(), in, nil)
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.Len(t, sender.sent, 3)
}

func TestCircuitBreakerResets(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return clock }

	cb.RecordFailure()
	assert.True(t, cb.CanProceed())
	cb.RecordFailure()
	assert.False(t, cb.CanProceed())

	clock = clock.Add(2 * time.Minute)
	assert.True(t, cb.CanProceed())
	assert.False(t, cb.Status().Open)

	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.True(t, cb.CanProceed())
}

func TestEmailJSClientSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testEmailConfig()
	cfg.Endpoint = srv.URL
	cfg.PrivateKey = "secret"
	client := NewEmailJSClient(cfg)

	err := client.Send(context.Background(), "tpl", map[string]string{"to_name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "service_1", got.ServiceID)
	assert.Equal(t, "tpl", got.TemplateID)
	assert.Equal(t, "public", got.UserID)
	assert.Equal(t, "secret", got.AccessToken)
	assert.Equal(t, "Ana", got.TemplateParams["to_name"])
}

func TestEmailJSClientRejectsNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad template", http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testEmailConfig()
	cfg.Endpoint = srv.URL
	err := NewEmailJSClient(cfg).Send(context.Background(), "tpl", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad template")
}

func TestFormatSoles(t *testing.T) {
	assert.Equal(t, "S/ 200,000", FormatSoles(200000))
	assert.Equal(t, "S/ 1,234,567.5", FormatSoles(1234567.5))
	assert.Equal(t, "S/ 950", FormatSoles(950))
	assert.Equal(t, "S/ 0", FormatSoles(0))
}
