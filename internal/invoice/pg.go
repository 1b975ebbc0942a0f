package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres error code raised when two finalisations
// race for the same branch sequence number.
const uniqueViolation = "23505"

// PGFinalizer records invoices in Postgres. Invoice numbers are sequential
// per branch; a sequence collision under concurrency is retried once with a
// freshly allocated number.
type PGFinalizer struct {
	Pool *pgxpool.Pool
}

// Create writes the invoice, its items and its payments in one transaction.
func (f PGFinalizer) Create(ctx context.Context, in CreateInput) (string, error) {
	if f.Pool == nil {
		return "", errors.New("invoice: pool not configured")
	}
	if in.TenantID == "" || in.BranchID == "" {
		return "", errors.New("invoice: tenant and branch are required")
	}
	if len(in.Items) == 0 {
		return "", errors.New("invoice: at least one item is required")
	}

	id, err := f.create(ctx, in)
	if err != nil && isUniqueViolation(err) {
		id, err = f.create(ctx, in)
	}
	return id, err
}

func (f PGFinalizer) create(ctx context.Context, in CreateInput) (string, error) {
	tx, err := f.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("invoice: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var seq int64
	err = tx.QueryRow(ctx, `
SELECT COALESCE(MAX(seq), 0) + 1
FROM invoices
WHERE tenant_id = $1 AND branch_id = $2`, in.TenantID, in.BranchID).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("invoice: allocate number: %w", err)
	}

	invoiceID := uuid.NewString()
	number := fmt.Sprintf("INV-%s-%06d", shortBranch(in.BranchID), seq)
	_, err = tx.Exec(ctx, `
INSERT INTO invoices (
  id, tenant_id, branch_id, seq, invoice_number, customer_id, appointment_id,
  subtotal, discount_total, taxable_amount, cgst_amount, sgst_amount,
  igst_amount, tip_amount, grand_total, amount_paid
) VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		invoiceID, in.TenantID, in.BranchID, seq, number, in.CustomerID, in.AppointmentID,
		in.Totals.Subtotal, in.Totals.DiscountTotal, in.Totals.TaxableAmount,
		in.Totals.CGSTAmount, in.Totals.SGSTAmount, in.Totals.IGSTAmount,
		in.Totals.TipAmount, in.Totals.GrandTotal, in.Totals.AmountPaid)
	if err != nil {
		return "", fmt.Errorf("invoice: insert: %w", err)
	}

	for _, item := range in.Items {
		_, err = tx.Exec(ctx, `
INSERT INTO invoice_items (
  id, invoice_id, item_type, reference_id, name, quantity,
  unit_price, gross_amount, total_tax, net_amount, stylist_id, assistant_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			uuid.NewString(), invoiceID, item.ItemType, item.ReferenceID, item.Name,
			item.Quantity, item.UnitPrice, item.GrossAmount, item.TotalTax,
			item.NetAmount, item.StylistID, item.AssistantID)
		if err != nil {
			return "", fmt.Errorf("invoice: insert item: %w", err)
		}
	}

	for _, payment := range in.Payments {
		_, err = tx.Exec(ctx, `
INSERT INTO invoice_payments (
  id, invoice_id, method, amount, card_last_four, transaction_id
) VALUES ($1,$2,$3,$4,$5,NULLIF($6,''))`,
			uuid.NewString(), invoiceID, payment.Method, payment.Amount,
			payment.CardLastFour, payment.TransactionID)
		if err != nil {
			return "", fmt.Errorf("invoice: insert payment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("invoice: commit: %w", err)
	}
	return invoiceID, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// shortBranch keeps invoice numbers readable when branch ids are UUIDs.
func shortBranch(branchID string) string {
	if len(branchID) > 8 {
		return branchID[:8]
	}
	return branchID
}
