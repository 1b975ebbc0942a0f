package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists audit entries in Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

const insertEntry = `
INSERT INTO audit_logs (
    tenant_id, action, resource_type, resource_id, method, path, route,
    status, ip, user_agent, request_id, metadata
) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''),
    $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12)`

const listEntries = `
SELECT id, tenant_id, action, resource_type, COALESCE(resource_id, ''),
       method, path, COALESCE(route, ''), status, COALESCE(ip, ''),
       COALESCE(user_agent, ''), COALESCE(request_id, ''), metadata, created_at
  FROM audit_logs
 WHERE tenant_id = $1
 ORDER BY id DESC
 LIMIT $2 OFFSET $3`

// Insert stores one entry.
func (p PGStore) Insert(ctx context.Context, e Entry) error {
	if p.Pool == nil {
		return fmt.Errorf("audit: pool not configured")
	}
	_, err := p.Pool.Exec(ctx, insertEntry,
		e.TenantID, e.Action, e.ResourceType, e.ResourceID, e.Method, e.Path,
		e.Route, e.Status, e.IP, e.UserAgent, e.RequestID, []byte(e.Metadata))
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// List returns recent entries for a tenant, newest first.
func (p PGStore) List(ctx context.Context, tenantID string, limit, offset int) ([]Entry, error) {
	if p.Pool == nil {
		return nil, fmt.Errorf("audit: pool not configured")
	}
	rows, err := p.Pool.Query(ctx, listEntries, tenantID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("audit: list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var metadata []byte
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Action, &e.ResourceType,
			&e.ResourceID, &e.Method, &e.Path, &e.Route, &e.Status, &e.IP,
			&e.UserAgent, &e.RequestID, &metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Metadata = metadata
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
