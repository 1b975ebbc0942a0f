// Package audit keeps a durable trail of mutating checkout requests. The
// session store is ephemeral, so the audit table is the only place a
// dispute about "who changed this sale" can be answered from.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/glowdesk/backend-salon/internal/common"
	"github.com/glowdesk/backend-salon/internal/obs"
)

// Entry is one recorded action.
type Entry struct {
	ID           int64           `json:"id,omitempty"`
	TenantID     string          `json:"tenantId"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Route        string          `json:"route,omitempty"`
	Status       int             `json:"status"`
	IP           string          `json:"ip,omitempty"`
	UserAgent    string          `json:"userAgent,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt,omitempty"`
}

// Store persists and queries audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	List(ctx context.Context, tenantID string, limit, offset int) ([]Entry, error)
}

// Service records audit entries for mutating checkout flows.
type Service struct {
	Store        Store
	Enabled      bool
	SamplingRate float64
}

// Record persists one audit entry when auditing is enabled. Completion
// events should never be sampled away; pass sampled=false for those.
func (s Service) Record(ctx context.Context, tenantID string, req *http.Request, action, resourceType, resourceID string, status int, metadata []byte, sampled bool) error {
	if !s.Enabled {
		return nil
	}
	if sampled && s.SamplingRate > 0 && s.SamplingRate < 1 {
		if rand.Float64() > s.SamplingRate {
			return nil
		}
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	if status == 0 {
		status = http.StatusOK
	}

	return s.Store.Insert(ctx, Entry{
		TenantID:     tenantID,
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Route:        route,
		Status:       status,
		IP:           common.ClientIP(req),
		UserAgent:    strings.TrimSpace(req.Header.Get("User-Agent")),
		RequestID:    strings.TrimSpace(req.Header.Get("X-Request-ID")),
		Metadata:     metadataOrQuery(metadata, req.URL.RawQuery),
	})
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	if route == "" {
		route = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + route
}

func buildResource(resourceType, route string) string {
	trimmed := strings.TrimSpace(resourceType)
	if trimmed != "" {
		return trimmed
	}
	route = strings.Trim(route, "/ ")
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(route, "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(route, "/", ".")
}

func metadataOrQuery(metadata []byte, query string) json.RawMessage {
	if len(metadata) > 0 {
		return metadata
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}
	data, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil
	}
	return data
}
