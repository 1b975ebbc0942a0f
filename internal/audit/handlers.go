package audit

import (
	"net/http"
	"strconv"

	"github.com/glowdesk/backend-salon/internal/common"
	"github.com/glowdesk/backend-salon/internal/tenant"
)

// Handler exposes the audit trail for back-office review.
type Handler struct {
	Store Store
}

// List returns a page of recent audit entries for the caller's tenant.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_NOT_CONFIGURED", "audit store not configured", nil)
		return
	}
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok || tenantID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tenant could not be resolved", nil)
		return
	}
	limit := atoiDefault(r.URL.Query().Get("limit"), 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)
	if offset < 0 {
		offset = 0
	}

	rows, err := h.Store.List(r.Context(), tenantID, limit, offset)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit entries", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": rows})
}

func atoiDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
