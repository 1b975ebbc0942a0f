package audit

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowdesk/backend-salon/internal/tenant"
)

// HTTPRecorder records requests after they have been handled.
type HTTPRecorder struct {
	Service Service
	OnError func(error)
}

// HTTPConfig customises how the audit entry is produced for a route.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	// Sampled entries are subject to the service sampling rate; leave it
	// false for money-moving routes like completion.
	Sampled      bool
	MetadataFunc func(*http.Request, int) map[string]any
}

// Middleware returns a chi-compatible middleware that records audit entries
// for mutating requests. Reads pass through untouched.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !r.Service.Enabled || req.Method == http.MethodGet || req.Method == http.MethodHead {
				next.ServeHTTP(w, req)
				return
			}

			recorder := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(recorder, req)

			tenantID, _ := tenant.FromContext(req.Context())

			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}

			var metadata []byte
			if cfg.MetadataFunc != nil {
				if payload := cfg.MetadataFunc(req, recorder.Status()); payload != nil {
					if data, err := json.Marshal(payload); err == nil {
						metadata = data
					}
				}
			}

			err := r.Service.Record(req.Context(), tenantID, req,
				cfg.Action, cfg.ResourceType, resourceID, recorder.Status(), metadata, cfg.Sampled)
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	return s.ResponseWriter.Write(b)
}
