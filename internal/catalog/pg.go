package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/glowdesk/backend-salon/internal/common"
)

// PGLookup implements Lookup against the catalog schema in Postgres.
type PGLookup struct {
	Pool *pgxpool.Pool
}

const itemQuery = `
SELECT i.name, COALESCE(i.sku, ''), COALESCE(i.hsn_code, ''),
       i.price::text, i.tax_rate::text,
       COALESCE(i.commission_type, ''), i.commission_rate::text,
       bp.price::text, bp.tax_rate::text
FROM catalog_items i
LEFT JOIN branch_prices bp
  ON bp.tenant_id = i.tenant_id
 AND bp.item_type = i.item_type
 AND bp.reference_id = i.id
 AND bp.branch_id = $4
WHERE i.tenant_id = $1 AND i.item_type = $2 AND i.id = $3`

// Item loads a priced catalog snapshot, including any branch override.
func (l PGLookup) Item(ctx context.Context, tenantID, branchID string, itemType ItemType, referenceID string) (ItemSnapshot, error) {
	if l.Pool == nil {
		return ItemSnapshot{}, errors.New("catalog: pool not configured")
	}
	var (
		snap                       ItemSnapshot
		price, taxRate, commRate   string
		branchPrice, branchTaxRate *string
	)
	snap.Type = itemType
	snap.ReferenceID = referenceID
	row := l.Pool.QueryRow(ctx, itemQuery, tenantID, string(itemType), referenceID, branchID)
	err := row.Scan(&snap.Name, &snap.SKU, &snap.HSNCode, &price, &taxRate,
		&snap.CommissionType, &commRate, &branchPrice, &branchTaxRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ItemSnapshot{}, notFoundFor(itemType)
		}
		return ItemSnapshot{}, fmt.Errorf("catalog: load item: %w", err)
	}
	if snap.Price, err = decimal.NewFromString(price); err != nil {
		return ItemSnapshot{}, fmt.Errorf("catalog: parse price: %w", err)
	}
	if snap.TaxRate, err = decimal.NewFromString(taxRate); err != nil {
		return ItemSnapshot{}, fmt.Errorf("catalog: parse tax rate: %w", err)
	}
	if snap.CommissionRate, err = decimal.NewFromString(commRate); err != nil {
		return ItemSnapshot{}, fmt.Errorf("catalog: parse commission rate: %w", err)
	}
	if branchPrice != nil {
		d, err := decimal.NewFromString(*branchPrice)
		if err != nil {
			return ItemSnapshot{}, fmt.Errorf("catalog: parse branch price: %w", err)
		}
		snap.BranchPrice = &d
	}
	if branchTaxRate != nil {
		d, err := decimal.NewFromString(*branchTaxRate)
		if err != nil {
			return ItemSnapshot{}, fmt.Errorf("catalog: parse branch tax rate: %w", err)
		}
		snap.BranchTaxRate = &d
	}
	return snap, nil
}

func notFoundFor(itemType ItemType) error {
	if itemType == ItemProduct {
		return common.NotFound("PRODUCT_NOT_FOUND", "product not found")
	}
	return common.NotFound("SERVICE_NOT_FOUND", "service not found")
}

// Customer loads the customer snapshot plus everything that can become a
// discount offer: active memberships, packages with remaining credit, and
// the loyalty balance.
func (l PGLookup) Customer(ctx context.Context, tenantID, customerID string) (CustomerProfile, error) {
	if l.Pool == nil {
		return CustomerProfile{}, errors.New("catalog: pool not configured")
	}
	var (
		profile      CustomerProfile
		loyaltyValue string
	)
	row := l.Pool.QueryRow(ctx, `
SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''),
       loyalty_points, loyalty_value::text
FROM customers
WHERE tenant_id = $1 AND id = $2`, tenantID, customerID)
	err := row.Scan(&profile.ID, &profile.Name, &profile.Phone, &profile.Email,
		&profile.LoyaltyPoints, &loyaltyValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CustomerProfile{}, common.NotFound("CUSTOMER_NOT_FOUND", "customer not found")
		}
		return CustomerProfile{}, fmt.Errorf("catalog: load customer: %w", err)
	}
	if profile.LoyaltyValue, err = decimal.NewFromString(loyaltyValue); err != nil {
		return CustomerProfile{}, fmt.Errorf("catalog: parse loyalty value: %w", err)
	}

	rows, err := l.Pool.Query(ctx, `
SELECT id, name, discount_percent::text
FROM memberships
WHERE tenant_id = $1 AND customer_id = $2 AND active`, tenantID, customerID)
	if err != nil {
		return CustomerProfile{}, fmt.Errorf("catalog: load memberships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m       Membership
			percent string
		)
		if err := rows.Scan(&m.ID, &m.Name, &percent); err != nil {
			return CustomerProfile{}, fmt.Errorf("catalog: scan membership: %w", err)
		}
		if m.DiscountPercent, err = decimal.NewFromString(percent); err != nil {
			return CustomerProfile{}, fmt.Errorf("catalog: parse membership percent: %w", err)
		}
		profile.Memberships = append(profile.Memberships, m)
	}
	if err := rows.Err(); err != nil {
		return CustomerProfile{}, err
	}

	pkgRows, err := l.Pool.Query(ctx, `
SELECT id, name, remaining_value::text
FROM customer_packages
WHERE tenant_id = $1 AND customer_id = $2 AND active AND remaining_value > 0`, tenantID, customerID)
	if err != nil {
		return CustomerProfile{}, fmt.Errorf("catalog: load packages: %w", err)
	}
	defer pkgRows.Close()
	for pkgRows.Next() {
		var (
			p     PackageCredit
			value string
		)
		if err := pkgRows.Scan(&p.ID, &p.Name, &value); err != nil {
			return CustomerProfile{}, fmt.Errorf("catalog: scan package: %w", err)
		}
		if p.RemainingValue, err = decimal.NewFromString(value); err != nil {
			return CustomerProfile{}, fmt.Errorf("catalog: parse package value: %w", err)
		}
		profile.Packages = append(profile.Packages, p)
	}
	return profile, pkgRows.Err()
}

// Appointment loads an appointment and its booked services.
func (l PGLookup) Appointment(ctx context.Context, tenantID, appointmentID string) (Appointment, error) {
	if l.Pool == nil {
		return Appointment{}, errors.New("catalog: pool not configured")
	}
	var appt Appointment
	row := l.Pool.QueryRow(ctx, `
SELECT id, branch_id, customer_id
FROM appointments
WHERE tenant_id = $1 AND id = $2`, tenantID, appointmentID)
	if err := row.Scan(&appt.ID, &appt.BranchID, &appt.CustomerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, common.NotFound("APPOINTMENT_NOT_FOUND", "appointment not found")
		}
		return Appointment{}, fmt.Errorf("catalog: load appointment: %w", err)
	}
	rows, err := l.Pool.Query(ctx, `
SELECT service_id, stylist_id, assistant_id
FROM appointment_services
WHERE appointment_id = $1
ORDER BY position`, appointmentID)
	if err != nil {
		return Appointment{}, fmt.Errorf("catalog: load appointment services: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var svc AppointmentService
		if err := rows.Scan(&svc.ServiceID, &svc.StylistID, &svc.AssistantID); err != nil {
			return Appointment{}, fmt.Errorf("catalog: scan appointment service: %w", err)
		}
		appt.Services = append(appt.Services, svc)
	}
	return appt, rows.Err()
}
