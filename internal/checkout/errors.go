package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/common"
)

// Machine-readable error codes surfaced verbatim to callers.
const (
	CodeSessionNotFound     = "SESSION_NOT_FOUND"
	CodeItemNotFound        = "ITEM_NOT_FOUND"
	CodeDiscountNotFound    = "DISCOUNT_NOT_FOUND"
	CodeUnsupportedItemType = "UNSUPPORTED_ITEM_TYPE"
	CodePaymentIncomplete   = "PAYMENT_INCOMPLETE"
	CodeNoItems             = "NO_ITEMS"
	CodeConflict            = "CONFLICT"
)

func errSessionNotFound() error {
	return common.NotFound(CodeSessionNotFound, "checkout session not found or expired")
}

func errItemNotFound(id string) error {
	return common.NotFound(CodeItemNotFound, fmt.Sprintf("line item %s not found on session", id))
}

func errDiscountNotFound(id string) error {
	return common.NotFound(CodeDiscountNotFound, fmt.Sprintf("discount %s not found on session", id))
}

func errUnsupportedItemType(itemType string) error {
	return common.BadRequest(CodeUnsupportedItemType, fmt.Sprintf("item type %q is not supported", itemType))
}

func errPaymentIncomplete(due decimal.Decimal) error {
	return common.BadRequest(CodePaymentIncomplete, fmt.Sprintf("amount due %s must be settled before completion", due.StringFixed(2)))
}

func errNoItems() error {
	return common.BadRequest(CodeNoItems, "checkout session has no line items")
}

func errConflict() error {
	return common.Conflict(CodeConflict, "session was modified concurrently, reload and retry")
}
