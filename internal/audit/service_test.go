package audit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/backend-salon/internal/audit"
	"github.com/glowdesk/backend-salon/internal/tenant"
)

type memAuditStore struct {
	entries []audit.Entry
}

func (m *memAuditStore) Insert(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAuditStore) List(_ context.Context, tenantID string, limit, offset int) ([]audit.Entry, error) {
	return m.entries, nil
}

func TestRecordDisabledIsNoop(t *testing.T) {
	store := &memAuditStore{}
	svc := audit.Service{Store: store, Enabled: false}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions", nil)
	err := svc.Record(context.Background(), "tenant-1", req, "", "", "", 201, nil, false)
	require.NoError(t, err)
	require.Empty(t, store.entries)
}

func TestRecordDerivesActionAndResource(t *testing.T) {
	store := &memAuditStore{}
	svc := audit.Service{Store: store, Enabled: true}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/sessions?source=pos", nil)
	req.Header.Set("X-Request-ID", "req-9")
	err := svc.Record(context.Background(), "tenant-1", req, "", "", "sess-1", 201, nil, false)
	require.NoError(t, err)
	require.Len(t, store.entries, 1)

	e := store.entries[0]
	require.Equal(t, "tenant-1", e.TenantID)
	require.Equal(t, "POST /api/v1/checkout/sessions", e.Action)
	require.Equal(t, "checkout.sessions", e.ResourceType)
	require.Equal(t, "sess-1", e.ResourceID)
	require.Equal(t, 201, e.Status)
	require.Equal(t, "req-9", e.RequestID)
	require.JSONEq(t, `{"query":"source=pos"}`, string(e.Metadata))
}

func TestMiddlewareSkipsReads(t *testing.T) {
	store := &memAuditStore{}
	rec := audit.HTTPRecorder{Service: audit.Service{Store: store, Enabled: true}}

	handler := rec.Middleware(audit.HTTPConfig{ResourceType: "checkout.session"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Empty(t, store.entries)

	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	req = req.WithContext(tenant.WithTenant(req.Context(), "tenant-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Len(t, store.entries, 1)
	require.Equal(t, "tenant-1", store.entries[0].TenantID)
}

func TestMiddlewareCapturesRouteParam(t *testing.T) {
	store := &memAuditStore{}
	rec := audit.HTTPRecorder{Service: audit.Service{Store: store, Enabled: true}}

	r := chi.NewRouter()
	r.With(rec.Middleware(audit.HTTPConfig{
		Action:          "checkout.complete",
		ResourceType:    "checkout.session",
		ResourceIDParam: "sessionID",
	})).Post("/sessions/{sessionID}/complete", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/sessions/s-42/complete", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, store.entries, 1)
	require.Equal(t, "checkout.complete", store.entries[0].Action)
	require.Equal(t, "s-42", store.entries[0].ResourceID)
}
