package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/facturx/internal/domain"
	"github.com/jhoicas/facturx/internal/domain/entity"
)

const issuedInvoicesDDL = `
CREATE TABLE IF NOT EXISTS facturx_issued_invoices (
	id          UUID PRIMARY KEY,
	number      TEXT NOT NULL UNIQUE,
	issue_date  DATE NOT NULL,
	profile     TEXT NOT NULL,
	seller_name TEXT NOT NULL,
	buyer_name  TEXT NOT NULL,
	currency    CHAR(3) NOT NULL,
	total_net   NUMERIC(18,2) NOT NULL,
	total_vat   NUMERIC(18,2) NOT NULL,
	total_gross NUMERIC(18,2) NOT NULL,
	xml_sha256  CHAR(64) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

// InvoiceRegistry registro de facturas emitidas. Los importes viajan como
// decimal.Decimal gracias al tipo registrado en AfterConnect (pgx-shopspring-decimal).
type InvoiceRegistry struct {
	q   Querier
	now func() time.Time
}

// NewInvoiceRegistry construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRegistry(q Querier) *InvoiceRegistry {
	return &InvoiceRegistry{q: q, now: time.Now}
}

// EnsureSchema crea la tabla si no existe.
func (r *InvoiceRegistry) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, issuedInvoicesDDL); err != nil {
		return fmt.Errorf("crear tabla facturx_issued_invoices: %w", err)
	}
	return nil
}

// Record inserta el asiento. Un número repetido devuelve domain.ErrDuplicateInvoiceNumber.
func (r *InvoiceRegistry) Record(ctx context.Context, rec *entity.IssuedInvoice) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now().UTC()
	}
	query := `
		INSERT INTO facturx_issued_invoices (id, number, issue_date, profile, seller_name, buyer_name, currency, total_net, total_vat, total_gross, xml_sha256, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.Number, rec.IssueDate, rec.Profile, rec.SellerName, rec.BuyerName, rec.Currency,
		rec.TotalNet, rec.TotalVAT, rec.TotalGross, rec.XMLDigest, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateInvoiceNumber, rec.Number)
		}
		return fmt.Errorf("insert issued invoice: %w", err)
	}
	return nil
}

// FindByNumber devuelve el asiento de un número, o nil si no existe.
func (r *InvoiceRegistry) FindByNumber(ctx context.Context, number string) (*entity.IssuedInvoice, error) {
	query := `
		SELECT id, number, issue_date, profile, seller_name, buyer_name, currency, total_net, total_vat, total_gross, xml_sha256, created_at
		FROM facturx_issued_invoices WHERE number = $1`
	var rec entity.IssuedInvoice
	err := r.q.QueryRow(ctx, query, number).Scan(
		&rec.ID, &rec.Number, &rec.IssueDate, &rec.Profile, &rec.SellerName, &rec.BuyerName, &rec.Currency,
		&rec.TotalNet, &rec.TotalVAT, &rec.TotalGross, &rec.XMLDigest, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select issued invoice: %w", err)
	}
	return &rec, nil
}
