package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/common"
	"github.com/glowdesk/backend-salon/internal/tenant"
)

// Handler exposes the session lifecycle over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type startRequest struct {
	BranchID      string `json:"branchId" validate:"required"`
	AppointmentID string `json:"appointmentId" validate:"omitempty"`
	CustomerID    string `json:"customerId" validate:"omitempty"`
	IsInterState  bool   `json:"isInterState"`
}

type addItemRequest struct {
	ItemType    string  `json:"itemType" validate:"required,oneof=service product combo package"`
	ReferenceID string  `json:"referenceId" validate:"required"`
	Quantity    int     `json:"quantity" validate:"required,gte=1"`
	StylistID   *string `json:"stylistId"`
	AssistantID *string `json:"assistantId"`
}

type applyDiscountRequest struct {
	Type          string          `json:"type" validate:"required,oneof=membership package coupon loyalty manual"`
	SourceID      string          `json:"sourceId"`
	Calculation   string          `json:"calculation" validate:"required,oneof=percentage flat"`
	Value         decimal.Decimal `json:"value" validate:"required"`
	AppliedTo     string          `json:"appliedTo" validate:"required,oneof=subtotal item"`
	AppliedItemID string          `json:"appliedItemId" validate:"required_if=AppliedTo item"`
	Reason        string          `json:"reason"`
}

type paymentRequest struct {
	Method        string          `json:"method" validate:"required,oneof=cash card upi wallet loyalty"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	CardLastFour  string          `json:"cardLastFour" validate:"omitempty,len=4,numeric"`
	TransactionID string          `json:"transactionId"`
	Notes         string          `json:"notes"`
}

type processPaymentRequest struct {
	Payments []paymentRequest `json:"payments" validate:"required,min=1,dive"`
}

type completeRequest struct {
	TipAmount     decimal.Decimal `json:"tipAmount"`
	SendReceipt   bool            `json:"sendReceipt"`
	ReceiptMethod string          `json:"receiptMethod" validate:"omitempty,oneof=email sms"`
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	var payload startRequest
	if !h.decode(w, r, &payload) {
		return
	}
	sess, err := h.Svc.StartCheckout(r.Context(), tenantID, StartInput{
		BranchID:      payload.BranchID,
		AppointmentID: payload.AppointmentID,
		CustomerID:    payload.CustomerID,
		IsInterState:  payload.IsInterState,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": sess})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.GetSession(r.Context(), tenantID, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess, "state": sess.State()})
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	var payload addItemRequest
	if !h.decode(w, r, &payload) {
		return
	}
	sess, err := h.Svc.AddItem(r.Context(), tenantID, chi.URLParam(r, "sessionID"), AddItemInput{
		ItemType:    payload.ItemType,
		ReferenceID: payload.ReferenceID,
		Quantity:    payload.Quantity,
		StylistID:   payload.StylistID,
		AssistantID: payload.AssistantID,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.RemoveItem(r.Context(), tenantID, chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	var payload applyDiscountRequest
	if !h.decode(w, r, &payload) {
		return
	}
	sess, err := h.Svc.ApplyDiscount(r.Context(), tenantID, chi.URLParam(r, "sessionID"), ApplyDiscountInput{
		Type:          payload.Type,
		SourceID:      payload.SourceID,
		Calculation:   payload.Calculation,
		Value:         payload.Value,
		AppliedTo:     payload.AppliedTo,
		AppliedItemID: payload.AppliedItemID,
		Reason:        payload.Reason,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	sess, err := h.Svc.RemoveDiscount(r.Context(), tenantID, chi.URLParam(r, "sessionID"), chi.URLParam(r, "discountID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	var payload processPaymentRequest
	if !h.decode(w, r, &payload) {
		return
	}
	inputs := make([]PaymentInput, 0, len(payload.Payments))
	for _, p := range payload.Payments {
		inputs = append(inputs, PaymentInput{
			Method:        p.Method,
			Amount:        p.Amount,
			CardLastFour:  p.CardLastFour,
			TransactionID: p.TransactionID,
			Notes:         p.Notes,
		})
	}
	sess, err := h.Svc.ProcessPayment(r.Context(), tenantID, chi.URLParam(r, "sessionID"), inputs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.tenantOf(w, r)
	if !ok {
		return
	}
	var payload completeRequest
	if !h.decode(w, r, &payload) {
		return
	}
	result, err := h.Svc.CompleteCheckout(r.Context(), tenantID, chi.URLParam(r, "sessionID"), CompleteInput{
		TipAmount:     payload.TipAmount,
		SendReceipt:   payload.SendReceipt,
		ReceiptMethod: payload.ReceiptMethod,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"invoiceId": result.InvoiceID,
		"totals":    result.Session.Totals,
	}})
}

func (h *Handler) tenantOf(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return "", false
	}
	tenantID, ok := tenant.FromContext(r.Context())
	if !ok || tenantID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "tenant could not be resolved", nil)
		return "", false
	}
	return tenantID, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(dst); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return false
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "BAD_REQUEST"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
}
