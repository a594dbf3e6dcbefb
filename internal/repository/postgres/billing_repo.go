package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const billingColumns = `id, billing_id, gym_id, gym_name, billing_month, billing_year,
    member_bills, breakdown, total_members, total_bill_amount, total_paid_amount,
    total_pending_amount, total_overdue_amount, currency, billing_status, due_date,
    payment_deadline, payment_history, is_finalized, finalized_at, created_at, updated_at`

// BillingRepository implements domain.BillingRepository using PostgreSQL
type BillingRepository struct {
	pool *pgxpool.Pool
}

// NewBillingRepository creates a new BillingRepository
func NewBillingRepository(pool *pgxpool.Pool) *BillingRepository {
	return &BillingRepository{pool: pool}
}

// Create inserts a billing record. The (gym, year, month) unique constraint rejects duplicates.
func (r *BillingRepository) Create(ctx context.Context, b *domain.MonthlyBilling) (*domain.MonthlyBilling, error) {
	id := b.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	memberBills, err := json.Marshal(b.MemberBills)
	if err != nil {
		return nil, fmt.Errorf("failed to encode member bills: %w", err)
	}
	breakdown, err := json.Marshal(b.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	history, err := json.Marshal(b.PaymentHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment history: %w", err)
	}

	total, err := decimalToPgNumeric(b.TotalBillAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total bill amount: %w", err)
	}
	paid, err := decimalToPgNumeric(b.TotalPaidAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total paid amount: %w", err)
	}
	pending, err := decimalToPgNumeric(b.TotalPendingAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total pending amount: %w", err)
	}
	overdue, err := decimalToPgNumeric(b.TotalOverdueAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid total overdue amount: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
        INSERT INTO monthly_billings (
            id, billing_id, gym_id, gym_name, billing_month, billing_year,
            member_bills, breakdown, total_members, total_bill_amount, total_paid_amount,
            total_pending_amount, total_overdue_amount, currency, billing_status, due_date,
            payment_deadline, payment_history
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        RETURNING `+billingColumns,
		id, b.BillingID, b.GymID, b.GymName, b.BillingMonth, b.BillingYear,
		memberBills, breakdown, b.TotalMembers, total, paid,
		pending, overdue, b.Currency, string(b.BillingStatus), b.DueDate,
		b.PaymentDeadline, history,
	)

	created, err := scanBilling(row)
	if err != nil {
		return nil, insertBillingError(err)
	}
	return created, nil
}

// GetByID retrieves a billing record by its ID
func (r *BillingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MonthlyBilling, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+billingColumns+` FROM monthly_billings WHERE id = $1`, id)
	return scanBilling(row)
}

// GetByGymAndPeriod retrieves the billing record of a gym for a month
func (r *BillingRepository) GetByGymAndPeriod(ctx context.Context, gymID uuid.UUID, year, month int) (*domain.MonthlyBilling, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT `+billingColumns+`
        FROM monthly_billings
        WHERE gym_id = $1 AND billing_year = $2 AND billing_month = $3
    `, gymID, year, month)
	return scanBilling(row)
}

// ListByPeriod retrieves every gym's billing record for a month
func (r *BillingRepository) ListByPeriod(ctx context.Context, year, month int) ([]*domain.MonthlyBilling, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+billingColumns+`
        FROM monthly_billings
        WHERE billing_year = $1 AND billing_month = $2
        ORDER BY gym_name
    `, year, month)
	if err != nil {
		return nil, err
	}
	return collectBillings(rows)
}

// ListByGymAndPeriods retrieves a gym's billing records for the given months
func (r *BillingRepository) ListByGymAndPeriods(ctx context.Context, gymID uuid.UUID, periods []domain.BillingPeriod) ([]*domain.MonthlyBilling, error) {
	if len(periods) == 0 {
		return []*domain.MonthlyBilling{}, nil
	}
	keys := make([]int32, len(periods))
	for i, p := range periods {
		keys[i] = int32(p.Year*100 + p.Month)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT `+billingColumns+`
        FROM monthly_billings
        WHERE gym_id = $1 AND (billing_year * 100 + billing_month) = ANY($2)
        ORDER BY billing_year DESC, billing_month DESC
    `, gymID, keys)
	if err != nil {
		return nil, err
	}
	return collectBillings(rows)
}

// ApplyFullPayment settles a bill with a single payment event.
// The row is locked so concurrent payments serialize and only the first one applies.
func (r *BillingRepository) ApplyFullPayment(ctx context.Context, id uuid.UUID, payment domain.PaymentEvent) (*domain.MonthlyBilling, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanBilling(tx.QueryRow(ctx, `SELECT `+billingColumns+` FROM monthly_billings WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if current.IsFullyPaid() {
		return nil, domain.ErrBillingAlreadyPaid
	}

	paid, pending, breakdown := current.FullPayment()
	paidNum, err := decimalToPgNumeric(paid)
	if err != nil {
		return nil, fmt.Errorf("invalid paid amount: %w", err)
	}
	pendingNum, err := decimalToPgNumeric(pending)
	if err != nil {
		return nil, fmt.Errorf("invalid pending amount: %w", err)
	}
	breakdownJSON, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	eventJSON, err := json.Marshal([]domain.PaymentEvent{payment})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment: %w", err)
	}

	row := tx.QueryRow(ctx, `
        UPDATE monthly_billings
        SET total_paid_amount = $2,
            total_pending_amount = $3,
            breakdown = $4,
            billing_status = $5,
            payment_history = payment_history || $6::jsonb,
            updated_at = NOW()
        WHERE id = $1 AND billing_status <> $5
        RETURNING `+billingColumns,
		id, paidNum, pendingNum, breakdownJSON, string(domain.BillingStatusFullyPaid), eventJSON,
	)
	updated, err := scanBilling(row)
	if err != nil {
		return nil, paymentUpdateError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// MarkFinalized freezes a billing record
func (r *BillingRepository) MarkFinalized(ctx context.Context, id uuid.UUID, at time.Time) (*domain.MonthlyBilling, error) {
	row := r.pool.QueryRow(ctx, `
        UPDATE monthly_billings
        SET is_finalized = TRUE, finalized_at = $2, updated_at = NOW()
        WHERE id = $1 AND is_finalized = FALSE
        RETURNING `+billingColumns, id, at)

	finalized, err := scanBilling(row)
	if err == nil {
		return finalized, nil
	}
	if err != domain.ErrBillingNotFound {
		return nil, err
	}

	// Nothing updated: either the record is missing or it was already frozen
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM monthly_billings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrBillingAlreadyFinalized
	}
	return nil, domain.ErrBillingNotFound
}

// insertBillingError maps a failed insert onto domain errors.
// A duplicate (gym, year, month) key means a concurrent create won.
func insertBillingError(err error) error {
	if isPgConstraintViolation(err, billingPeriodConstraint) || isPgUniqueViolation(err) {
		return domain.ErrBillingAlreadyExists
	}
	return err
}

// paymentUpdateError maps a failed conditional payment update.
// No row back from the locked record means it was settled in the meantime.
func paymentUpdateError(err error) error {
	if errors.Is(err, domain.ErrBillingNotFound) {
		return domain.ErrBillingAlreadyPaid
	}
	return err
}

func collectBillings(rows pgx.Rows) ([]*domain.MonthlyBilling, error) {
	defer rows.Close()
	billings := make([]*domain.MonthlyBilling, 0)
	for rows.Next() {
		b, err := scanBilling(rows)
		if err != nil {
			return nil, err
		}
		billings = append(billings, b)
	}
	return billings, rows.Err()
}

func scanBilling(row pgx.Row) (*domain.MonthlyBilling, error) {
	var (
		b                               domain.MonthlyBilling
		billingMonth                    int16
		memberBills, breakdown, history []byte
		total, paid, pending, overdue   pgtype.Numeric
		status                          string
	)
	err := row.Scan(
		&b.ID,
		&b.BillingID,
		&b.GymID,
		&b.GymName,
		&billingMonth,
		&b.BillingYear,
		&memberBills,
		&breakdown,
		&b.TotalMembers,
		&total,
		&paid,
		&pending,
		&overdue,
		&b.Currency,
		&status,
		&b.DueDate,
		&b.PaymentDeadline,
		&history,
		&b.IsFinalized,
		&b.FinalizedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrBillingNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(memberBills, &b.MemberBills); err != nil {
		return nil, fmt.Errorf("failed to decode member bills: %w", err)
	}
	if err := json.Unmarshal(breakdown, &b.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	if err := json.Unmarshal(history, &b.PaymentHistory); err != nil {
		return nil, fmt.Errorf("failed to decode payment history: %w", err)
	}

	b.BillingMonth = int(billingMonth)
	b.TotalBillAmount = pgNumericToDecimal(total)
	b.TotalPaidAmount = pgNumericToDecimal(paid)
	b.TotalPendingAmount = pgNumericToDecimal(pending)
	b.TotalOverdueAmount = pgNumericToDecimal(overdue)
	b.BillingStatus = domain.BillingStatus(status)
	return &b, nil
}
