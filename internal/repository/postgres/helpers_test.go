package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type errRow struct{ err error }

func (r errRow) Scan(dest ...any) error { return r.err }

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, in := range []string{"0", "500.00", "32.26", "16.13", "123456789.99"} {
		d := decimal.RequireFromString(in)
		num, err := decimalToPgNumeric(d)
		require.NoError(t, err)
		assert.True(t, d.Equal(pgNumericToDecimal(num)), in)
	}
}

func TestPgNumericToDecimal_Invalid(t *testing.T) {
	assert.True(t, pgNumericToDecimal(pgtype.Numeric{}).IsZero())
	assert.True(t, pgNumericToDecimal(pgtype.Numeric{Valid: true}).IsZero())
}

func TestIsPgUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: billingPeriodConstraint}
	wrapped := fmt.Errorf("insert failed: %w", unique)

	assert.True(t, isPgUniqueViolation(unique))
	assert.True(t, isPgUniqueViolation(wrapped))
	assert.False(t, isPgUniqueViolation(nil))
	assert.False(t, isPgUniqueViolation(errors.New("boom")))
	assert.False(t, isPgUniqueViolation(&pgconn.PgError{Code: "23503"}))

	assert.True(t, isPgConstraintViolation(wrapped, billingPeriodConstraint))
	assert.False(t, isPgConstraintViolation(&pgconn.PgError{Code: "23505", ConstraintName: "gyms_pkey"}, billingPeriodConstraint))
}

func TestPgDateToTimePtr(t *testing.T) {
	assert.Nil(t, pgDateToTimePtr(pgtype.Date{}))

	day := time.Date(2026, 9, 16, 0, 0, 0, 0, time.UTC)
	got := pgDateToTimePtr(pgtype.Date{Time: day, Valid: true})
	require.NotNil(t, got)
	assert.Equal(t, day, *got)
}

func TestScanNoRowsMapsToDomainErrors(t *testing.T) {
	_, err := scanBilling(errRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, domain.ErrBillingNotFound)

	_, err = scanGym(errRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, err, domain.ErrGymNotFound)

	boom := errors.New("conn reset")
	_, err = scanBilling(errRow{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestInsertBillingError(t *testing.T) {
	boom := errors.New("connection reset")
	foreignKey := &pgconn.PgError{Code: "23503", ConstraintName: "monthly_billings_gym_id_fkey"}

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"period constraint", &pgconn.PgError{Code: "23505", ConstraintName: billingPeriodConstraint}, domain.ErrBillingAlreadyExists},
		{"wrapped period constraint", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: billingPeriodConstraint}), domain.ErrBillingAlreadyExists},
		{"other unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "monthly_billings_pkey"}, domain.ErrBillingAlreadyExists},
		{"foreign key passes through", foreignKey, foreignKey},
		{"other error passes through", boom, boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, insertBillingError(tt.err), tt.expected)
		})
	}
}

func TestPaymentUpdateError(t *testing.T) {
	assert.ErrorIs(t, paymentUpdateError(domain.ErrBillingNotFound), domain.ErrBillingAlreadyPaid)

	// conditional update returning no row scans as not found
	_, err := scanBilling(errRow{err: pgx.ErrNoRows})
	assert.ErrorIs(t, paymentUpdateError(err), domain.ErrBillingAlreadyPaid)

	boom := errors.New("deadlock detected")
	assert.Same(t, boom, paymentUpdateError(boom))
}
