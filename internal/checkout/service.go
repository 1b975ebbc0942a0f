package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/catalog"
	"github.com/glowdesk/backend-salon/internal/common"
	"github.com/glowdesk/backend-salon/internal/invoice"
	"github.com/glowdesk/backend-salon/internal/lock"
	"github.com/glowdesk/backend-salon/internal/money"
	"github.com/glowdesk/backend-salon/internal/obs"
	"github.com/glowdesk/backend-salon/internal/pricing"
	"github.com/glowdesk/backend-salon/internal/receipt"
)

// ReceiptQueue schedules post-sale receipt delivery.
type ReceiptQueue interface {
	Enqueue(ctx context.Context, p receipt.Payload) error
}

// Service orchestrates the session lifecycle. Every mutating operation is a
// read-modify-write cycle: load the snapshot, delegate the math to the
// pricing package, recompute totals in full, and write the snapshot back
// with a refreshed TTL. The store's conditional put turns concurrent edits
// into CONFLICT errors instead of lost updates.
type Service struct {
	Store    Store
	Catalog  catalog.Lookup
	Invoices invoice.Finalizer
	Receipts ReceiptQueue
	// Locks serialises completion per session so two terminals cannot
	// finalise the same sale into two invoices. Optional; nil skips locking.
	Locks *lock.Locker
	TTL   time.Duration
	Now   func() time.Time
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 30 * time.Minute
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// StartInput begins a session. At most one of AppointmentID/CustomerID may
// be set; both absent starts an empty walk-in session.
type StartInput struct {
	BranchID      string
	AppointmentID string
	CustomerID    string
	IsInterState  bool
}

// StartCheckout creates a session, optionally pre-populated from an
// appointment's booked services, and surfaces the customer's memberships,
// packages and loyalty balance as available discount offers.
func (s *Service) StartCheckout(ctx context.Context, tenantID string, in StartInput) (*Session, error) {
	if s == nil || s.Store == nil || s.Catalog == nil {
		return nil, errors.New("checkout service not configured")
	}
	if in.AppointmentID != "" && in.CustomerID != "" {
		return nil, common.BadRequest("BAD_REQUEST", "supply at most one of appointmentId and customerId")
	}

	sess := &Session{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		BranchID:  in.BranchID,
		IsIGST:    in.IsInterState,
		Items:     []pricing.LineItem{},
		Discounts: []pricing.AppliedDiscount{},
		Payments:  []pricing.PaymentEntry{},
		TipAmount: decimal.Zero,
		CreatedAt: s.now().UTC(),
	}

	switch {
	case in.AppointmentID != "":
		appt, err := s.Catalog.Appointment(ctx, tenantID, in.AppointmentID)
		if err != nil {
			return nil, err
		}
		sess.AppointmentID = appt.ID
		profile, err := s.Catalog.Customer(ctx, tenantID, appt.CustomerID)
		if err != nil {
			return nil, err
		}
		s.attachCustomer(sess, profile)
		for _, booked := range appt.Services {
			snap, err := s.Catalog.Item(ctx, tenantID, in.BranchID, catalog.ItemService, booked.ServiceID)
			if err != nil {
				return nil, err
			}
			item := pricing.PriceItem(snap, 1, sess.IsIGST)
			item.ID = uuid.NewString()
			item.StylistID = booked.StylistID
			item.AssistantID = booked.AssistantID
			sess.Items = append(sess.Items, item)
		}
	case in.CustomerID != "":
		profile, err := s.Catalog.Customer(ctx, tenantID, in.CustomerID)
		if err != nil {
			return nil, err
		}
		s.attachCustomer(sess, profile)
	}

	sess.recompute()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	if obs.CheckoutSessionsStarted != nil {
		obs.CheckoutSessionsStarted.Inc()
	}
	return sess, nil
}

func (s *Service) attachCustomer(sess *Session, profile catalog.CustomerProfile) {
	sess.Customer = &CustomerSnapshot{
		ID:    profile.ID,
		Name:  profile.Name,
		Phone: profile.Phone,
		Email: profile.Email,
	}
	for _, m := range profile.Memberships {
		sess.Offers = append(sess.Offers, DiscountOffer{
			Type:        pricing.DiscountMembership,
			SourceID:    m.ID,
			Name:        m.Name,
			Calculation: pricing.CalcPercentage,
			Value:       m.DiscountPercent,
		})
	}
	for _, p := range profile.Packages {
		sess.Offers = append(sess.Offers, DiscountOffer{
			Type:        pricing.DiscountPackage,
			SourceID:    p.ID,
			Name:        p.Name,
			Calculation: pricing.CalcFlat,
			Value:       p.RemainingValue,
		})
	}
	if profile.LoyaltyValue.IsPositive() {
		sess.Offers = append(sess.Offers, DiscountOffer{
			Type:        pricing.DiscountLoyalty,
			SourceID:    "loyalty:points",
			Name:        "Loyalty points",
			Calculation: pricing.CalcFlat,
			Value:       profile.LoyaltyValue,
		})
	}
}

// GetSession loads a session scoped to the caller's tenant. A tenant
// mismatch reads identically to absence so session existence never leaks
// across tenants.
func (s *Service) GetSession(ctx context.Context, tenantID, sessionID string) (*Session, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("checkout service not configured")
	}
	sess, ok, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok || sess.TenantID != tenantID {
		if obs.CheckoutSessionMisses != nil {
			obs.CheckoutSessionMisses.Inc()
		}
		return nil, errSessionNotFound()
	}
	return &sess, nil
}

// AddItemInput describes one catalog reference to price onto the session.
type AddItemInput struct {
	ItemType    string
	ReferenceID string
	Quantity    int
	StylistID   *string
	AssistantID *string
}

// AddItem prices a new line item at the session's inter-state flag and
// appends it. Mutation extends the session's life by a full TTL window.
func (s *Service) AddItem(ctx context.Context, tenantID, sessionID string, in AddItemInput) (*Session, error) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	itemType := catalog.ItemType(in.ItemType)
	if !itemType.Valid() {
		return nil, errUnsupportedItemType(in.ItemType)
	}
	if in.Quantity <= 0 {
		return nil, common.BadRequest("BAD_REQUEST", "quantity must be positive")
	}
	snap, err := s.Catalog.Item(ctx, tenantID, sess.BranchID, itemType, in.ReferenceID)
	if err != nil {
		return nil, err
	}
	item := pricing.PriceItem(snap, in.Quantity, sess.IsIGST)
	item.ID = uuid.NewString()
	item.StylistID = in.StylistID
	item.AssistantID = in.AssistantID
	sess.Items = append(sess.Items, item)
	sess.recompute()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// RemoveItem deletes a line item and cascades to every discount scoped to
// it; a discount cannot outlive its target.
func (s *Service) RemoveItem(ctx context.Context, tenantID, sessionID, itemID string) (*Session, error) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, it := range sess.Items {
		if it.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errItemNotFound(itemID)
	}
	sess.Items = append(sess.Items[:idx], sess.Items[idx+1:]...)

	kept := sess.Discounts[:0]
	for _, d := range sess.Discounts {
		if d.AppliedTo == pricing.ScopeItem && d.AppliedItemID == itemID {
			continue
		}
		kept = append(kept, d)
	}
	sess.Discounts = kept

	sess.recompute()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// ApplyDiscountInput describes an already-authorised discount request.
// Eligibility decisions happen at offer-construction time; this layer only
// computes magnitude.
type ApplyDiscountInput struct {
	Type          string
	SourceID      string
	Calculation   string
	Value         decimal.Decimal
	AppliedTo     string
	AppliedItemID string
	Reason        string
}

// ApplyDiscount computes and records one discount instance. Discounts stack
// freely; only the item-scoped flat cap constrains a single instance.
func (s *Service) ApplyDiscount(ctx context.Context, tenantID, sessionID string, in ApplyDiscountInput) (*Session, error) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	scope := pricing.DiscountScope(in.AppliedTo)
	calc := pricing.CalculationType(in.Calculation)
	if !scope.Valid() {
		return nil, common.BadRequest("BAD_REQUEST", "appliedTo must be subtotal or item")
	}
	if !calc.Valid() {
		return nil, common.BadRequest("BAD_REQUEST", "calculation must be percentage or flat")
	}
	if in.Value.IsNegative() {
		return nil, common.BadRequest("BAD_REQUEST", "discount value must not be negative")
	}
	amount, ok := pricing.DiscountAmount(sess.Items, scope, calc, in.Value, in.AppliedItemID)
	if !ok {
		return nil, errItemNotFound(in.AppliedItemID)
	}
	applied := pricing.AppliedDiscount{
		ID:          uuid.NewString(),
		Type:        pricing.DiscountType(in.Type),
		SourceID:    in.SourceID,
		Calculation: calc,
		Value:       in.Value,
		Amount:      amount,
		AppliedTo:   scope,
		Reason:      in.Reason,
	}
	if scope == pricing.ScopeItem {
		applied.AppliedItemID = in.AppliedItemID
		for i := range sess.Items {
			if sess.Items[i].ID == in.AppliedItemID {
				sess.Items[i].DiscountAmount = money.Round2(sess.Items[i].DiscountAmount.Add(amount))
				break
			}
		}
	}
	sess.Discounts = append(sess.Discounts, applied)
	sess.recompute()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	if obs.CheckoutDiscountsApplied != nil {
		obs.CheckoutDiscountsApplied.WithLabelValues(string(applied.Type)).Inc()
	}
	return sess, nil
}

// RemoveDiscount deletes one discount instance.
func (s *Service) RemoveDiscount(ctx context.Context, tenantID, sessionID, discountID string) (*Session, error) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, d := range sess.Discounts {
		if d.ID == discountID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errDiscountNotFound(discountID)
	}
	removed := sess.Discounts[idx]
	if removed.AppliedTo == pricing.ScopeItem {
		for i := range sess.Items {
			if sess.Items[i].ID == removed.AppliedItemID {
				sess.Items[i].DiscountAmount = money.Clamp(sess.Items[i].DiscountAmount.Sub(removed.Amount))
				break
			}
		}
	}
	sess.Discounts = append(sess.Discounts[:idx], sess.Discounts[idx+1:]...)
	sess.recompute()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// PaymentInput is one tender to record.
type PaymentInput struct {
	Method        string
	Amount        decimal.Decimal
	CardLastFour  string
	TransactionID string
	Notes         string
}

// ProcessPayment appends one or more tenders. Over- and underpayment are
// both representable; only completion enforces the balance.
func (s *Service) ProcessPayment(ctx context.Context, tenantID, sessionID string, payments []PaymentInput) (*Session, error) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, common.BadRequest("BAD_REQUEST", "at least one payment is required")
	}
	for _, p := range payments {
		method := pricing.PaymentMethod(p.Method)
		if !method.Valid() {
			return nil, common.BadRequest("BAD_REQUEST", "unknown payment method "+p.Method)
		}
		if p.Amount.IsNegative() {
			return nil, common.BadRequest("BAD_REQUEST", "payment amount must not be negative")
		}
		sess.Payments = append(sess.Payments, pricing.PaymentEntry{
			ID:            uuid.NewString(),
			Method:        method,
			Amount:        money.Round2(p.Amount),
			CardLastFour:  p.CardLastFour,
			TransactionID: p.TransactionID,
			Notes:         p.Notes,
		})
	}
	sess.recompute()
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// CompleteInput finishes a session.
type CompleteInput struct {
	TipAmount     decimal.Decimal
	SendReceipt   bool
	ReceiptMethod string
}

// CompleteResult pairs the final session snapshot with the created invoice.
type CompleteResult struct {
	Session   *Session
	InvoiceID string
}

// CompleteCheckout validates the completion invariants, hands the session
// to the invoice finalizer and deletes it only after the finalizer
// succeeds. A failed finalisation leaves the session intact so the caller
// can retry without re-entering anything. Receipt delivery is enqueued best
// effort after the sale is durable.
func (s *Service) CompleteCheckout(ctx context.Context, tenantID, sessionID string, in CompleteInput) (CompleteResult, error) {
	if s == nil || s.Invoices == nil {
		return CompleteResult{}, errors.New("checkout service not configured")
	}
	if s.Locks == nil {
		return s.complete(ctx, tenantID, sessionID, in)
	}
	var result CompleteResult
	err := s.Locks.WithLock(ctx, "checkout:complete:"+sessionID, 30*time.Second, func(ctx context.Context) error {
		var err error
		result, err = s.complete(ctx, tenantID, sessionID, in)
		return err
	})
	return result, err
}

func (s *Service) complete(ctx context.Context, tenantID, sessionID string, in CompleteInput) (CompleteResult, error) {
	sess, err := s.GetSession(ctx, tenantID, sessionID)
	if err != nil {
		return CompleteResult{}, err
	}
	if in.TipAmount.IsPositive() {
		sess.TipAmount = money.Round2(in.TipAmount)
		sess.recompute()
	}
	if err := sess.CanComplete(); err != nil {
		if obs.CheckoutCompletions != nil {
			obs.CheckoutCompletions.WithLabelValues(common.ErrorCode(err)).Inc()
		}
		return CompleteResult{}, err
	}

	invoiceID, err := s.Invoices.Create(ctx, s.finalizerInput(sess))
	if err != nil {
		if obs.CheckoutCompletions != nil {
			obs.CheckoutCompletions.WithLabelValues("finalizer_error").Inc()
		}
		return CompleteResult{}, err
	}
	if err := s.Store.Delete(ctx, sess.ID); err != nil {
		// The invoice exists; the session will fall out of the store at TTL.
		return CompleteResult{Session: sess, InvoiceID: invoiceID}, nil
	}
	if obs.CheckoutCompletions != nil {
		obs.CheckoutCompletions.WithLabelValues("success").Inc()
	}
	if in.SendReceipt && s.Receipts != nil {
		s.enqueueReceipt(ctx, sess, invoiceID, in.ReceiptMethod)
	}
	return CompleteResult{Session: sess, InvoiceID: invoiceID}, nil
}

func (s *Service) finalizerInput(sess *Session) invoice.CreateInput {
	in := invoice.CreateInput{
		TenantID:      sess.TenantID,
		BranchID:      sess.BranchID,
		AppointmentID: sess.AppointmentID,
		Totals:        sess.Totals,
	}
	if sess.Customer != nil {
		in.CustomerID = sess.Customer.ID
	}
	for _, item := range sess.Items {
		in.Items = append(in.Items, invoice.ItemInput{
			ItemType:    string(item.Type),
			ReferenceID: item.ReferenceID,
			Name:        item.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			GrossAmount: item.GrossAmount,
			TotalTax:    item.TotalTax,
			NetAmount:   item.NetAmount,
			StylistID:   item.StylistID,
			AssistantID: item.AssistantID,
		})
	}
	for _, p := range sess.Payments {
		in.Payments = append(in.Payments, invoice.PaymentInput{
			Method:        string(p.Method),
			Amount:        p.Amount,
			CardLastFour:  p.CardLastFour,
			TransactionID: p.TransactionID,
		})
	}
	return in
}

func (s *Service) enqueueReceipt(ctx context.Context, sess *Session, invoiceID, method string) {
	p := receipt.Payload{
		InvoiceID:  invoiceID,
		TenantID:   sess.TenantID,
		Method:     method,
		GrandTotal: sess.Totals.GrandTotal.StringFixed(2),
		AmountPaid: sess.Totals.AmountPaid.StringFixed(2),
	}
	if sess.Customer != nil {
		p.CustomerName = sess.Customer.Name
		p.CustomerEmail = sess.Customer.Email
		p.CustomerPhone = sess.Customer.Phone
	}
	_ = s.Receipts.Enqueue(ctx, p)
}

func (s *Service) save(ctx context.Context, sess *Session) error {
	if err := s.Store.Put(ctx, sess, s.ttl()); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			if obs.CheckoutConflicts != nil {
				obs.CheckoutConflicts.Inc()
			}
			return errConflict()
		}
		return err
	}
	return nil
}
