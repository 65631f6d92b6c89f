package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"voice-webhook-router/internal/config"
)

type crmCall struct {
	variant string
	field   string
}

type mockCRM struct {
	calls   []crmCall
	matchOn crmCall
	contact map[string]any
	failAll bool
	server  *httptest.Server
}

func newMockCRM(matchOn crmCall, contact map[string]any) *mockCRM {
	m := &mockCRM{matchOn: matchOn, contact: contact}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := crmCall{variant: r.URL.Query().Get("q"), field: r.URL.Query().Get("f")}
		m.calls = append(m.calls, call)

		if m.failAll {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		contacts := []map[string]any{}
		if call == m.matchOn {
			contacts = append(contacts, m.contact)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"contacts": map[string]any{"contacts": contacts},
		})
	}))
	return m
}

func newTestClient(t *testing.T, baseURL string) Lookup {
	t.Helper()
	cfg := &config.Config{CRMBaseURL: baseURL, CRMToken: "test-token"}
	return New(cfg, zaptest.NewLogger(t))
}

func TestLookupByPhone_FirstVariantPrimaryField(t *testing.T) {
	srv := newMockCRM(crmCall{variant: "19092601366", field: "mobile_number"},
		map[string]any{
			"display_name": "Jane Doe",
			"custom_field": map[string]any{
				"mailbox_id":         "MB-1042",
				"approval_status":    "approved",
				"needs_resubmission": false,
				"account_id":         "acct-77",
			},
			"tags": []string{"vip"},
		})
	defer srv.server.Close()

	res := newTestClient(t, srv.server.URL).LookupByPhone(context.Background(), "+19092601366")

	require.True(t, res.Found)
	assert.Equal(t, "Jane Doe", res.Contact.DisplayName)
	assert.Equal(t, "MB-1042", res.Contact.MailboxID)
	assert.Equal(t, "approved", res.Contact.ApprovalStatus)
	assert.False(t, res.Contact.NeedsResubmission)
	assert.Equal(t, "acct-77", res.Contact.AccountID)
	assert.Equal(t, []string{"vip"}, res.Contact.Tags)
	assert.Equal(t, "19092601366", res.MatchedVariant)
	assert.Equal(t, "mobile_number", res.MatchedField)
	// First variant hit: exactly one outbound call.
	assert.Len(t, srv.calls, 1)
}

func TestLookupByPhone_FallsBackToSecondaryField(t *testing.T) {
	srv := newMockCRM(crmCall{variant: "9092601366", field: "phone"},
		map[string]any{"display_name": "Bob Smith", "custom_field": map[string]any{}})
	defer srv.server.Close()

	res := newTestClient(t, srv.server.URL).LookupByPhone(context.Background(), "9092601366")

	require.True(t, res.Found)
	assert.Equal(t, "Bob Smith", res.Contact.DisplayName)
	assert.Equal(t, "phone", res.MatchedField)
	// All three variants exhausted on mobile_number before phone matched.
	assert.Equal(t, []crmCall{
		{"19092601366", "mobile_number"},
		{"9092601366", "mobile_number"},
		{"+19092601366", "mobile_number"},
		{"19092601366", "phone"},
		{"9092601366", "phone"},
	}, srv.calls)
}

func TestLookupByPhone_ExhaustionReportsNeedsPhoneNumber(t *testing.T) {
	srv := newMockCRM(crmCall{}, nil)
	defer srv.server.Close()

	res := newTestClient(t, srv.server.URL).LookupByPhone(context.Background(), "9092601366")

	assert.False(t, res.Found)
	assert.True(t, res.NeedsPhoneNumber)
	assert.NotEmpty(t, res.VariantsTried)
	assert.NotEmpty(t, res.Error)
	assert.Len(t, srv.calls, 6)
}

func TestLookupByPhone_HTTPFailuresDoNotAbortLoop(t *testing.T) {
	srv := newMockCRM(crmCall{}, nil)
	srv.failAll = true
	defer srv.server.Close()

	res := newTestClient(t, srv.server.URL).LookupByPhone(context.Background(), "9092601366")

	assert.False(t, res.Found)
	assert.True(t, res.NeedsPhoneNumber)
	// Every variant/field combination was still attempted.
	assert.Len(t, srv.calls, 6)
}

func TestLookupByPhone_MissingTokenIsConfigError(t *testing.T) {
	cfg := &config.Config{CRMBaseURL: "https://crm.invalid"}
	res := New(cfg, zaptest.NewLogger(t)).LookupByPhone(context.Background(), "9092601366")

	assert.False(t, res.Found)
	assert.Contains(t, res.Error, "Configuration error")
	assert.False(t, res.NeedsPhoneNumber)
}

func TestLookupByPhone_ResubmissionStringForms(t *testing.T) {
	srv := newMockCRM(crmCall{variant: "19092601366", field: "mobile_number"},
		map[string]any{
			"display_name": "Ann Lee",
			"custom_field": map[string]any{"needs_resubmission": "true"},
		})
	defer srv.server.Close()

	res := newTestClient(t, srv.server.URL).LookupByPhone(context.Background(), "9092601366")

	require.True(t, res.Found)
	assert.True(t, res.Contact.NeedsResubmission)
}
