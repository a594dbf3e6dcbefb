package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrBillingNotFound         = errors.New("billing record not found")
	ErrBillingAlreadyExists    = errors.New("billing already exists for this gym and month")
	ErrBillingAlreadyPaid      = errors.New("billing is already fully paid")
	ErrBillingAlreadyFinalized = errors.New("billing is already finalized")
	ErrNoBillableMembers       = errors.New("no billable members for this month")
	ErrInvalidBillingPeriod    = errors.New("invalid billing month or year")
	ErrFutureBillingPeriod     = errors.New("cannot create billing for a future month")
	ErrInvalidPaymentMethod    = errors.New("invalid payment method")
	ErrInvalidDueDate          = errors.New("due date must fall on or after the start of the billing month")
	ErrPaymentSignatureInvalid = errors.New("payment signature verification failed")
)

type BillingStatus string

const (
	BillingStatusDraft         BillingStatus = "draft"
	BillingStatusSent          BillingStatus = "sent"
	BillingStatusPartiallyPaid BillingStatus = "partially_paid" // reserved, no code path sets it
	BillingStatusFullyPaid     BillingStatus = "fully_paid"
	BillingStatusOverdue       BillingStatus = "overdue" // reserved, no code path sets it
)

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
	PaymentMethodRazorpay     PaymentMethod = "razorpay"
)

// IsValid reports whether the payment method is one of the accepted values
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodUPI, PaymentMethodCard,
		PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodRazorpay:
		return true
	}
	return false
}

// MemberBill is one member's pro-rated line item for a billing month
type MemberBill struct {
	MemberID           uuid.UUID       `json:"memberId"`
	MemberName         string          `json:"memberName"`
	MemberEmail        string          `json:"memberEmail,omitempty"`
	MemberPhone        string          `json:"memberPhone,omitempty"`
	MembershipType     MembershipType  `json:"membershipType"`
	ActiveFrom         time.Time       `json:"activeFrom"`
	ActiveTo           time.Time       `json:"activeTo"`
	DaysActive         int             `json:"daysActive"`
	DaysInMonth        int             `json:"daysInMonth"`
	OriginalMonthlyFee decimal.Decimal `json:"originalMonthlyFee"`
	ProRatedAmount     decimal.Decimal `json:"proRatedAmount"`
}

// MembershipBreakdown aggregates member bills of one membership type
type MembershipBreakdown struct {
	MembershipType MembershipType  `json:"membershipType"`
	MemberCount    int             `json:"memberCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
}

// PaymentEvent is an append-only entry of a billing record's payment history
type PaymentEvent struct {
	ID               uuid.UUID       `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	TransactionID    string          `json:"transactionId,omitempty"`
	Description      string          `json:"description,omitempty"`
	RecordedBy       string          `json:"recordedBy,omitempty"`
	GatewayOrderID   string          `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string          `json:"gatewayPaymentId,omitempty"`
	PaidAt           time.Time       `json:"paidAt"`
}

// MonthlyBilling is the bill of one gym for one calendar month.
// Once finalized it is immutable except for payment application.
type MonthlyBilling struct {
	ID                 uuid.UUID             `json:"id"`
	BillingID          string                `json:"billingId"`
	GymID              uuid.UUID             `json:"gymId"`
	GymName            string                `json:"gymName"`
	BillingMonth       int                   `json:"billingMonth"`
	BillingYear        int                   `json:"billingYear"`
	MemberBills        []MemberBill          `json:"memberBills"`
	Breakdown          []MembershipBreakdown `json:"breakdown"`
	TotalMembers       int                   `json:"totalMembers"`
	TotalBillAmount    decimal.Decimal       `json:"totalBillAmount"`
	TotalPaidAmount    decimal.Decimal       `json:"totalPaidAmount"`
	TotalPendingAmount decimal.Decimal       `json:"totalPendingAmount"`
	TotalOverdueAmount decimal.Decimal       `json:"totalOverdueAmount"`
	Currency           string                `json:"currency"`
	BillingStatus      BillingStatus         `json:"billingStatus"`
	DueDate            time.Time             `json:"dueDate"`
	PaymentDeadline    time.Time             `json:"paymentDeadline"`
	PaymentHistory     []PaymentEvent        `json:"paymentHistory"`
	IsFinalized        bool                  `json:"isFinalized"`
	FinalizedAt        *time.Time            `json:"finalizedAt,omitempty"`
	CreatedAt          time.Time             `json:"createdAt"`
	UpdatedAt          time.Time             `json:"updatedAt"`
}

// IsFullyPaid reports whether the bill has been settled
func (b *MonthlyBilling) IsFullyPaid() bool {
	return b.BillingStatus == BillingStatusFullyPaid
}

// FullPayment derives the settlement totals for paying the whole bill in one event.
// Breakdown rows are settled too.
func (b *MonthlyBilling) FullPayment() (paid, pending decimal.Decimal, breakdown []MembershipBreakdown) {
	breakdown = make([]MembershipBreakdown, len(b.Breakdown))
	for i, row := range b.Breakdown {
		row.PaidAmount = row.TotalAmount
		row.PendingAmount = decimal.Zero
		breakdown[i] = row
	}
	return b.TotalBillAmount, decimal.Zero, breakdown
}

// BillingPeriod identifies a calendar month
type BillingPeriod struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// FormatBillingID returns the display identifier of a persisted billing record
func FormatBillingID(gymID uuid.UUID, year, month int) string {
	return fmt.Sprintf("BILL-%04d%02d-%s", year, month, shortGymID(gymID))
}

// FormatCurrentBillingID returns the display identifier of a live, unpersisted bill
func FormatCurrentBillingID(gymID uuid.UUID, year, month int) string {
	return fmt.Sprintf("CURRENT-%04d%02d-%s", year, month, shortGymID(gymID))
}

func shortGymID(gymID uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(gymID.String(), "-", "")[:8])
}

// BillingRepository persists monthly billing records.
// Create must return ErrBillingAlreadyExists when the (gym, year, month) key is taken.
type BillingRepository interface {
	Create(ctx context.Context, billing *MonthlyBilling) (*MonthlyBilling, error)
	GetByID(ctx context.Context, id uuid.UUID) (*MonthlyBilling, error)
	GetByGymAndPeriod(ctx context.Context, gymID uuid.UUID, year, month int) (*MonthlyBilling, error)
	ListByPeriod(ctx context.Context, year, month int) ([]*MonthlyBilling, error)
	ListByGymAndPeriods(ctx context.Context, gymID uuid.UUID, periods []BillingPeriod) ([]*MonthlyBilling, error)
	// ApplyFullPayment appends the payment and settles the bill only if it is not already fully paid.
	// Returns ErrBillingAlreadyPaid when the record is already settled.
	ApplyFullPayment(ctx context.Context, id uuid.UUID, payment PaymentEvent) (*MonthlyBilling, error)
	// MarkFinalized freezes the record. Returns ErrBillingAlreadyFinalized when already frozen.
	MarkFinalized(ctx context.Context, id uuid.UUID, at time.Time) (*MonthlyBilling, error)
}
