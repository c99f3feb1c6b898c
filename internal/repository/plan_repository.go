package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/gymdesk/internal/model"
)

// PlanRepo encapsulates all queries on membership_plans.  Plans are never
// deleted; they are hidden with is_active = 0.
type PlanRepo struct {
	db *sql.DB
}

// NewPlanRepo constructs a PlanRepo with the provided DB handle.
func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

const planColumns = `id, name, duration_months, price, price_efectivo, price_debito_automatico,
	price_tarjeta_transferencia, is_active, description, created_at, updated_at`

func scanPlan(s scanner) (*model.MembershipPlan, error) {
	var p model.MembershipPlan
	err := s.Scan(&p.ID, &p.Name, &p.DurationMonths, &p.Price, &p.PriceEfectivo, &p.PriceDebitoAutomatico,
		&p.PriceTarjetaTransferencia, &p.IsActive, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns plans ordered by duration then name.  Inactive plans are
// only included on request.
func (r *PlanRepo) List(ctx context.Context, includeInactive bool) ([]model.MembershipPlan, error) {
	q := "SELECT " + planColumns + " FROM membership_plans"
	if !includeInactive {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY duration_months, name"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.MembershipPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetByID fetches a plan or returns ErrNotFound.
func (r *PlanRepo) GetByID(ctx context.Context, id uint64) (*model.MembershipPlan, error) {
	return r.GetByIDTx(ctx, r.db, id)
}

// GetByIDTx is GetByID inside a transaction.
func (r *PlanRepo) GetByIDTx(ctx context.Context, tx DBTX, id uint64) (*model.MembershipPlan, error) {
	p, err := scanPlan(tx.QueryRowContext(ctx, "SELECT "+planColumns+" FROM membership_plans WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// GetByNameTx looks a plan up by its exact name.
func (r *PlanRepo) GetByNameTx(ctx context.Context, tx DBTX, name string) (*model.MembershipPlan, error) {
	p, err := scanPlan(tx.QueryRowContext(ctx, "SELECT "+planColumns+" FROM membership_plans WHERE name = ? LIMIT 1", name))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

// Create inserts p and fills in its id and timestamps.  A duplicate name
// yields ErrConflict.
func (r *PlanRepo) Create(ctx context.Context, p *model.MembershipPlan) error {
	const q = `INSERT INTO membership_plans (name, duration_months, price, price_efectivo,
		price_debito_automatico, price_tarjeta_transferencia, is_active, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.DurationMonths, p.Price, p.PriceEfectivo,
		p.PriceDebitoAutomatico, p.PriceTarjetaTransferencia, p.IsActive, p.Description)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	if p.ID, err = lastID(res); err != nil {
		return err
	}
	// read back defaults (timestamps)
	created, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// Update writes every editable column of p.  duration_months is not
// touched: it is fixed at creation.
func (r *PlanRepo) Update(ctx context.Context, p *model.MembershipPlan) error {
	const q = `UPDATE membership_plans
		SET name = ?, price = ?, price_efectivo = ?, price_debito_automatico = ?,
		    price_tarjeta_transferencia = ?, is_active = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, p.Name, p.Price, p.PriceEfectivo, p.PriceDebitoAutomatico,
		p.PriceTarjetaTransferencia, p.IsActive, p.Description, p.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	return affected(res)
}
