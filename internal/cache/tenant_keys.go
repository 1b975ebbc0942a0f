package cache

import "fmt"

// KeyCatalogItem returns the per-tenant cache key for one item snapshot.
// Branch is part of the key because branch price overrides make the same
// item resolve differently per branch.
func KeyCatalogItem(tenantID, branchID, itemType, referenceID string) string {
	return fmt.Sprintf("%s:catalog:item:%s:%s:%s", tenantID, itemType, referenceID, branchID)
}

// KeySession returns the store key for a checkout session. Session IDs are
// globally unique so the key is not tenant-prefixed; tenant scoping happens
// on read.
func KeySession(sessionID string) string {
	return "checkout:session:" + sessionID
}
