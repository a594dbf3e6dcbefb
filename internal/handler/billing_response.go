package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/service"
)

const dateLayout = "2006-01-02"

// MemberBillResponse represents one member line of a bill in API responses
type MemberBillResponse struct {
	MemberID           string `json:"memberId"`
	MemberName         string `json:"memberName"`
	MemberEmail        string `json:"memberEmail,omitempty"`
	MemberPhone        string `json:"memberPhone,omitempty"`
	MembershipType     string `json:"membershipType"`
	ActiveFrom         string `json:"activeFrom"`
	ActiveTo           string `json:"activeTo"`
	DaysActive         int    `json:"daysActive"`
	DaysInMonth        int    `json:"daysInMonth"`
	OriginalMonthlyFee string `json:"originalMonthlyFee"`
	ProRatedAmount     string `json:"proRatedAmount"`
}

// BreakdownResponse represents the per membership type totals of a bill
type BreakdownResponse struct {
	MembershipType string `json:"membershipType"`
	MemberCount    int    `json:"memberCount"`
	TotalAmount    string `json:"totalAmount"`
	PaidAmount     string `json:"paidAmount"`
	PendingAmount  string `json:"pendingAmount"`
}

// PaymentEventResponse represents one payment history entry
type PaymentEventResponse struct {
	ID               string `json:"id"`
	Amount           string `json:"amount"`
	PaymentMethod    string `json:"paymentMethod"`
	TransactionID    string `json:"transactionId,omitempty"`
	Description      string `json:"description,omitempty"`
	RecordedBy       string `json:"recordedBy,omitempty"`
	GatewayOrderID   string `json:"gatewayOrderId,omitempty"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty"`
	PaidAt           string `json:"paidAt"`
}

// BillingResponse represents a monthly billing record in API responses
type BillingResponse struct {
	ID                 string                 `json:"id,omitempty"`
	BillingID          string                 `json:"billingId"`
	GymID              string                 `json:"gymId"`
	GymName            string                 `json:"gymName"`
	BillingMonth       int                    `json:"billingMonth"`
	BillingYear        int                    `json:"billingYear"`
	MemberBills        []MemberBillResponse   `json:"memberBills"`
	Breakdown          []BreakdownResponse    `json:"breakdown"`
	TotalMembers       int                    `json:"totalMembers"`
	TotalBillAmount    string                 `json:"totalBillAmount"`
	TotalPaidAmount    string                 `json:"totalPaidAmount"`
	TotalPendingAmount string                 `json:"totalPendingAmount"`
	TotalOverdueAmount string                 `json:"totalOverdueAmount"`
	Currency           string                 `json:"currency"`
	BillingStatus      string                 `json:"billingStatus"`
	DueDate            string                 `json:"dueDate"`
	PaymentDeadline    string                 `json:"paymentDeadline"`
	PaymentHistory     []PaymentEventResponse `json:"paymentHistory"`
	IsFinalized        bool                   `json:"isFinalized"`
	FinalizedAt        *string                `json:"finalizedAt,omitempty"`
	CreatedAt          string                 `json:"createdAt"`
	UpdatedAt          string                 `json:"updatedAt"`
}

// BillingViewResponse wraps the bill of one month. Billing is null when nothing is billable.
type BillingViewResponse struct {
	Billing           *BillingResponse `json:"billing"`
	Year              int              `json:"year"`
	Month             int              `json:"month"`
	MonthName         string           `json:"monthName"`
	IsLive            bool             `json:"isLive"`
	CalculatedThrough *string          `json:"calculatedThrough,omitempty"`
}

// BillingEnvelope wraps a single stored billing record
type BillingEnvelope struct {
	Billing *BillingResponse `json:"billing"`
}

// BillingListResponse wraps a list of billing records
type BillingListResponse struct {
	Year     int               `json:"year"`
	Month    int               `json:"month"`
	Billings []BillingResponse `json:"billings"`
}

// HistoryEntryResponse represents one completed month in the billing history
type HistoryEntryResponse struct {
	Year               int     `json:"year"`
	Month              int     `json:"month"`
	MonthName          string  `json:"monthName"`
	Exists             bool    `json:"exists"`
	BillingRecordID    *string `json:"billingRecordId,omitempty"`
	BillingID          string  `json:"billingId,omitempty"`
	TotalMembers       int     `json:"totalMembers"`
	TotalBillAmount    string  `json:"totalBillAmount"`
	TotalPaidAmount    string  `json:"totalPaidAmount"`
	TotalPendingAmount string  `json:"totalPendingAmount"`
	BillingStatus      string  `json:"billingStatus,omitempty"`
	IsFinalized        bool    `json:"isFinalized"`
}

// HistoryResponse represents the billing history API response
type HistoryResponse struct {
	Months []HistoryEntryResponse `json:"months"`
}

func toBillingResponse(b *domain.MonthlyBilling) *BillingResponse {
	if b == nil {
		return nil
	}

	resp := &BillingResponse{
		BillingID:          b.BillingID,
		GymID:              b.GymID.String(),
		GymName:            b.GymName,
		BillingMonth:       b.BillingMonth,
		BillingYear:        b.BillingYear,
		MemberBills:        make([]MemberBillResponse, len(b.MemberBills)),
		Breakdown:          make([]BreakdownResponse, len(b.Breakdown)),
		TotalMembers:       b.TotalMembers,
		TotalBillAmount:    b.TotalBillAmount.StringFixed(2),
		TotalPaidAmount:    b.TotalPaidAmount.StringFixed(2),
		TotalPendingAmount: b.TotalPendingAmount.StringFixed(2),
		TotalOverdueAmount: b.TotalOverdueAmount.StringFixed(2),
		Currency:           b.Currency,
		BillingStatus:      string(b.BillingStatus),
		DueDate:            b.DueDate.Format(dateLayout),
		PaymentDeadline:    b.PaymentDeadline.Format(dateLayout),
		PaymentHistory:     make([]PaymentEventResponse, len(b.PaymentHistory)),
		IsFinalized:        b.IsFinalized,
		CreatedAt:          b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          b.UpdatedAt.Format(time.RFC3339),
	}
	// Live bills have no record ID yet
	if b.ID != uuid.Nil {
		resp.ID = b.ID.String()
	}
	if b.FinalizedAt != nil {
		finalizedAt := b.FinalizedAt.Format(time.RFC3339)
		resp.FinalizedAt = &finalizedAt
	}

	for i, m := range b.MemberBills {
		resp.MemberBills[i] = MemberBillResponse{
			MemberID:           m.MemberID.String(),
			MemberName:         m.MemberName,
			MemberEmail:        m.MemberEmail,
			MemberPhone:        m.MemberPhone,
			MembershipType:     string(m.MembershipType),
			ActiveFrom:         m.ActiveFrom.Format(dateLayout),
			ActiveTo:           m.ActiveTo.Format(dateLayout),
			DaysActive:         m.DaysActive,
			DaysInMonth:        m.DaysInMonth,
			OriginalMonthlyFee: m.OriginalMonthlyFee.StringFixed(2),
			ProRatedAmount:     m.ProRatedAmount.StringFixed(2),
		}
	}
	for i, bd := range b.Breakdown {
		resp.Breakdown[i] = BreakdownResponse{
			MembershipType: string(bd.MembershipType),
			MemberCount:    bd.MemberCount,
			TotalAmount:    bd.TotalAmount.StringFixed(2),
			PaidAmount:     bd.PaidAmount.StringFixed(2),
			PendingAmount:  bd.PendingAmount.StringFixed(2),
		}
	}
	for i, p := range b.PaymentHistory {
		resp.PaymentHistory[i] = PaymentEventResponse{
			ID:               p.ID.String(),
			Amount:           p.Amount.StringFixed(2),
			PaymentMethod:    string(p.PaymentMethod),
			TransactionID:    p.TransactionID,
			Description:      p.Description,
			RecordedBy:       p.RecordedBy,
			GatewayOrderID:   p.GatewayOrderID,
			GatewayPaymentID: p.GatewayPaymentID,
			PaidAt:           p.PaidAt.Format(time.RFC3339),
		}
	}
	return resp
}

func toBillingViewResponse(v *service.BillingView) BillingViewResponse {
	resp := BillingViewResponse{
		Billing:   toBillingResponse(v.Billing),
		Year:      v.Year,
		Month:     v.Month,
		MonthName: v.MonthName,
		IsLive:    v.IsLive,
	}
	if v.CalculatedThrough != nil {
		through := v.CalculatedThrough.Format(dateLayout)
		resp.CalculatedThrough = &through
	}
	return resp
}

func toHistoryResponse(entries []service.BillingHistoryEntry) HistoryResponse {
	resp := HistoryResponse{Months: make([]HistoryEntryResponse, len(entries))}
	for i, e := range entries {
		entry := HistoryEntryResponse{
			Year:               e.Year,
			Month:              e.Month,
			MonthName:          e.MonthName,
			Exists:             e.Exists,
			BillingID:          e.BillingID,
			TotalMembers:       e.TotalMembers,
			TotalBillAmount:    e.TotalBillAmount.StringFixed(2),
			TotalPaidAmount:    e.TotalPaidAmount.StringFixed(2),
			TotalPendingAmount: e.TotalPendingAmount.StringFixed(2),
			BillingStatus:      string(e.BillingStatus),
			IsFinalized:        e.IsFinalized,
		}
		if e.BillingRecordID != nil {
			id := e.BillingRecordID.String()
			entry.BillingRecordID = &id
		}
		resp.Months[i] = entry
	}
	return resp
}
