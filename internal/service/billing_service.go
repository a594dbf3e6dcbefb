package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/calculator"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/messaging"
	"github.com/gymcrm/gymcrm-backend/internal/util"
	"github.com/gymcrm/gymcrm-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Billing operation names used for metrics and events
const (
	OpCreate   = "create"
	OpPayment  = "payment"
	OpFinalize = "finalize"

	DefaultHistoryMonths = 6
)

// BillingNotifier publishes billing events to the message broker
type BillingNotifier interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// BillingArchiver stores an immutable copy of finalized bills
type BillingArchiver interface {
	Archive(ctx context.Context, billing *domain.MonthlyBilling) error
}

// BillingMetrics records billing outcomes
type BillingMetrics interface {
	RecordBillingOperation(operation, result string)
	RecordSweepOutcome(outcome string, n int)
	RecordSweepDuration(d time.Duration)
}

// DashboardInvalidator drops cached dashboard data of a gym
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, gymID uuid.UUID) error
}

// PaymentVerifier checks gateway payment signatures
type PaymentVerifier interface {
	Verify(orderID, paymentID, signature string) error
}

// BillingSettings holds the pricing and calendar used for billing
type BillingSettings struct {
	MonthlyFee       decimal.Decimal
	Currency         string
	Location         *time.Location
	HistoryMaxMonths int
}

// BillingView is a bill for one month as returned to clients.
// Billing is nil when the gym had no billable members.
type BillingView struct {
	Billing           *domain.MonthlyBilling `json:"billing"`
	Year              int                    `json:"year"`
	Month             int                    `json:"month"`
	MonthName         string                 `json:"monthName"`
	IsLive            bool                   `json:"isLive"`
	CalculatedThrough *time.Time             `json:"calculatedThrough,omitempty"`
}

// BillingHistoryEntry summarizes one completed month; Exists is false when no record was stored
type BillingHistoryEntry struct {
	Year               int                  `json:"year"`
	Month              int                  `json:"month"`
	MonthName          string               `json:"monthName"`
	Exists             bool                 `json:"exists"`
	BillingRecordID    *uuid.UUID           `json:"billingRecordId,omitempty"`
	BillingID          string               `json:"billingId,omitempty"`
	TotalMembers       int                  `json:"totalMembers"`
	TotalBillAmount    decimal.Decimal      `json:"totalBillAmount"`
	TotalPaidAmount    decimal.Decimal      `json:"totalPaidAmount"`
	TotalPendingAmount decimal.Decimal      `json:"totalPendingAmount"`
	BillingStatus      domain.BillingStatus `json:"billingStatus,omitempty"`
	IsFinalized        bool                 `json:"isFinalized"`
}

// CreateBillingInput is the admin request to persist a month's bill
type CreateBillingInput struct {
	GymID           uuid.UUID
	Year            int
	Month           int
	DueDate         *time.Time
	PaymentDeadline *time.Time
	CreatedBy       string
}

// AddPaymentInput settles a billing record.
// GymID scopes the lookup for gym-facing calls; nil means an admin call.
type AddPaymentInput struct {
	BillingRecordID   uuid.UUID
	GymID             *uuid.UUID
	PaymentMethod     domain.PaymentMethod
	TransactionID     string
	Description       string
	RecordedBy        string
	RazorpayOrderID   string
	RazorpayPaymentID string
	RazorpaySignature string
}

// SweepResult reports how each gym fared in a batch billing run.
// Every gym lands in exactly one of the outcome counters.
type SweepResult struct {
	Year             int         `json:"year"`
	Month            int         `json:"month"`
	TotalGyms        int         `json:"totalGyms"`
	Created          int         `json:"created"`
	Finalized        int         `json:"finalized"`
	AlreadyFinalized int         `json:"alreadyFinalized"`
	AlreadyExists    int         `json:"alreadyExists"`
	Skipped          int         `json:"skipped"`
	Failed           int         `json:"failed"`
	FailedGymIDs     []uuid.UUID `json:"failedGymIds"`
}

// sweep outcomes
const (
	outcomeCreated          = "created"
	outcomeFinalized        = "finalized"
	outcomeAlreadyFinalized = "already_finalized"
	outcomeAlreadyExists    = "already_exists"
	outcomeSkipped          = "skipped"
	outcomeFailed           = "failed"
)

func (r *SweepResult) record(outcome string, gymID uuid.UUID) {
	switch outcome {
	case outcomeCreated:
		r.Created++
	case outcomeFinalized:
		r.Finalized++
	case outcomeAlreadyFinalized:
		r.AlreadyFinalized++
	case outcomeAlreadyExists:
		r.AlreadyExists++
	case outcomeSkipped:
		r.Skipped++
	case outcomeFailed:
		r.Failed++
		r.FailedGymIDs = append(r.FailedGymIDs, gymID)
	}
}

// Processed returns how many gyms reached an outcome. It is below TotalGyms when a sweep stopped early.
func (r *SweepResult) Processed() int {
	return r.Created + r.Finalized + r.AlreadyFinalized + r.AlreadyExists + r.Skipped + r.Failed
}

// BillingEventPayload is the body of websocket and broker billing events
type BillingEventPayload struct {
	BillingRecordID uuid.UUID            `json:"billingRecordId"`
	BillingID       string               `json:"billingId"`
	GymID           uuid.UUID            `json:"gymId"`
	Year            int                  `json:"year"`
	Month           int                  `json:"month"`
	TotalBillAmount string               `json:"totalBillAmount"`
	TotalPaid       string               `json:"totalPaidAmount"`
	BillingStatus   domain.BillingStatus `json:"billingStatus"`
	IsFinalized     bool                 `json:"isFinalized"`
}

func newBillingEventPayload(b *domain.MonthlyBilling) BillingEventPayload {
	return BillingEventPayload{
		BillingRecordID: b.ID,
		BillingID:       b.BillingID,
		GymID:           b.GymID,
		Year:            b.BillingYear,
		Month:           b.BillingMonth,
		TotalBillAmount: b.TotalBillAmount.StringFixed(2),
		TotalPaid:       b.TotalPaidAmount.StringFixed(2),
		BillingStatus:   b.BillingStatus,
		IsFinalized:     b.IsFinalized,
	}
}

// BillingService owns the monthly billing record lifecycle
type BillingService struct {
	gymRepo     domain.GymRepository
	memberRepo  domain.MemberRepository
	billingRepo domain.BillingRepository
	settings    BillingSettings

	eventPublisher websocket.EventPublisher
	notifier       BillingNotifier
	archiver       BillingArchiver
	metrics        BillingMetrics
	dashboard      DashboardInvalidator
	verifier       PaymentVerifier
	now            func() time.Time
	logger         zerolog.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(gymRepo domain.GymRepository, memberRepo domain.MemberRepository, billingRepo domain.BillingRepository, settings BillingSettings) *BillingService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	if settings.HistoryMaxMonths < 1 {
		settings.HistoryMaxMonths = 24
	}
	return &BillingService{
		gymRepo:     gymRepo,
		memberRepo:  memberRepo,
		billingRepo: billingRepo,
		settings:    settings,
		now:         time.Now,
		logger:      log.Logger.With().Str("component", "billing").Logger(),
	}
}

// SetEventPublisher sets the WebSocket event publisher
func (s *BillingService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetNotifier sets the broker publisher
func (s *BillingService) SetNotifier(notifier BillingNotifier) {
	s.notifier = notifier
}

// SetArchiver sets the archive for finalized bills
func (s *BillingService) SetArchiver(archiver BillingArchiver) {
	s.archiver = archiver
}

// SetMetrics sets the metrics recorder
func (s *BillingService) SetMetrics(metrics BillingMetrics) {
	s.metrics = metrics
}

// SetDashboardInvalidator sets the dashboard cache to invalidate on billing changes
func (s *BillingService) SetDashboardInvalidator(dashboard DashboardInvalidator) {
	s.dashboard = dashboard
}

// SetPaymentVerifier sets the gateway signature verifier
func (s *BillingService) SetPaymentVerifier(verifier PaymentVerifier) {
	s.verifier = verifier
}

// SetClock overrides the time source (for tests)
func (s *BillingService) SetClock(now func() time.Time) {
	s.now = now
}

// SetLogger sets the logger
func (s *BillingService) SetLogger(logger zerolog.Logger) {
	s.logger = logger.With().Str("component", "billing").Logger()
}

// localNow returns the current instant in the business timezone
func (s *BillingService) localNow() time.Time {
	return s.now().In(s.settings.Location)
}

// GetCurrentMonthBilling computes the running bill of the current month up to today.
// The result is never persisted.
func (s *BillingService) GetCurrentMonthBilling(ctx context.Context, gymID uuid.UUID) (*BillingView, error) {
	gym, err := s.gymRepo.GetByID(ctx, gymID)
	if err != nil {
		return nil, err
	}

	now := s.localNow()
	year, month := now.Year(), int(now.Month())

	members, err := s.memberRepo.ListByGym(ctx, gym.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	result, err := calculator.CalculateMonth(members, calculator.Options{
		Year:       year,
		Month:      month,
		MonthlyFee: s.settings.MonthlyFee,
		AsOf:       now,
	})
	if err != nil {
		return nil, err
	}

	through := result.CalculationEnd
	view := &BillingView{
		Year:              year,
		Month:             month,
		MonthName:         util.MonthName(year, month),
		IsLive:            true,
		CalculatedThrough: &through,
	}
	if result.IsEmpty() {
		return view, nil
	}

	billing := s.buildBilling(gym, result, domain.BillingStatusDraft, domain.FormatCurrentBillingID(gym.ID, year, month))
	billing.DueDate = result.MonthEnd
	billing.PaymentDeadline = result.MonthEnd
	billing.CreatedAt = s.now()
	billing.UpdatedAt = billing.CreatedAt
	view.Billing = billing

	return view, nil
}

// GetMonthBilling returns the bill of a month. The current month is computed live,
// past months come from the store, future months never exist.
func (s *BillingService) GetMonthBilling(ctx context.Context, gymID uuid.UUID, year, month int) (*BillingView, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	now := s.localNow()
	if util.IsSameMonth(now, year, month) {
		return s.GetCurrentMonthBilling(ctx, gymID)
	}
	if util.IsFutureMonth(year, month, now) {
		return nil, domain.ErrBillingNotFound
	}

	if _, err := s.gymRepo.GetByID(ctx, gymID); err != nil {
		return nil, err
	}

	billing, err := s.billingRepo.GetByGymAndPeriod(ctx, gymID, year, month)
	if err != nil {
		return nil, err
	}

	return &BillingView{
		Billing:   billing,
		Year:      year,
		Month:     month,
		MonthName: util.MonthName(year, month),
	}, nil
}

// GetBillingHistory lists the last n completed months, newest first.
// Months without a stored record are returned as stubs.
func (s *BillingService) GetBillingHistory(ctx context.Context, gymID uuid.UUID, months int) ([]BillingHistoryEntry, error) {
	if months == 0 {
		months = DefaultHistoryMonths
	}
	if months < 1 || months > s.settings.HistoryMaxMonths {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", domain.ErrInvalidInput, s.settings.HistoryMaxMonths)
	}

	if _, err := s.gymRepo.GetByID(ctx, gymID); err != nil {
		return nil, err
	}

	now := s.localNow()
	periods := util.MonthsBack(now.Year(), int(now.Month()), months)

	records, err := s.billingRepo.ListByGymAndPeriods(ctx, gymID, periods)
	if err != nil {
		return nil, fmt.Errorf("failed to list billing history: %w", err)
	}

	byPeriod := make(map[domain.BillingPeriod]*domain.MonthlyBilling, len(records))
	for _, r := range records {
		byPeriod[domain.BillingPeriod{Year: r.BillingYear, Month: r.BillingMonth}] = r
	}

	entries := make([]BillingHistoryEntry, 0, len(periods))
	for _, p := range periods {
		entry := BillingHistoryEntry{
			Year:               p.Year,
			Month:              p.Month,
			MonthName:          util.MonthName(p.Year, p.Month),
			TotalBillAmount:    decimal.Zero,
			TotalPaidAmount:    decimal.Zero,
			TotalPendingAmount: decimal.Zero,
		}
		if r, ok := byPeriod[p]; ok {
			id := r.ID
			entry.Exists = true
			entry.BillingRecordID = &id
			entry.BillingID = r.BillingID
			entry.TotalMembers = r.TotalMembers
			entry.TotalBillAmount = r.TotalBillAmount
			entry.TotalPaidAmount = r.TotalPaidAmount
			entry.TotalPendingAmount = r.TotalPendingAmount
			entry.BillingStatus = r.BillingStatus
			entry.IsFinalized = r.IsFinalized
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// CreateBilling computes and persists the bill of a gym for a whole month
func (s *BillingService) CreateBilling(ctx context.Context, input CreateBillingInput) (*domain.MonthlyBilling, error) {
	if err := validatePeriod(input.Year, input.Month); err != nil {
		return nil, err
	}
	if util.IsFutureMonth(input.Year, input.Month, s.localNow()) {
		return nil, domain.ErrFutureBillingPeriod
	}

	dueDate, deadline, err := resolveDueDates(input.Year, input.Month, input.DueDate, input.PaymentDeadline)
	if err != nil {
		return nil, err
	}

	gym, err := s.gymRepo.GetByID(ctx, input.GymID)
	if err != nil {
		return nil, err
	}

	billing, err := s.createForGym(ctx, gym, input.Year, input.Month, dueDate, deadline)
	if err != nil {
		s.recordOperation(OpCreate, err)
		return nil, err
	}

	s.recordOperation(OpCreate, nil)
	s.logger.Info().
		Str("gym_id", gym.ID.String()).
		Str("billing_id", billing.BillingID).
		Str("created_by", input.CreatedBy).
		Str("total", billing.TotalBillAmount.StringFixed(2)).
		Msg("Billing created")

	return billing, nil
}

// CreateBillingForAllGyms persists the bill of every gym for a month.
// Gyms that already have a record, were created after the month or had no billable members are skipped.
func (s *BillingService) CreateBillingForAllGyms(ctx context.Context, year, month int) (*SweepResult, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	if util.IsFutureMonth(year, month, s.localNow()) {
		return nil, domain.ErrFutureBillingPeriod
	}

	gyms, err := s.gymRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gyms: %w", err)
	}

	dueDate, deadline, _ := resolveDueDates(year, month, nil, nil)
	result := &SweepResult{Year: year, Month: month, TotalGyms: len(gyms), FailedGymIDs: []uuid.UUID{}}

	for _, gym := range gyms {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome := outcomeCreated
		if !gym.ExistedDuring(year, month, s.settings.Location) {
			outcome = outcomeSkipped
		} else if _, err := s.createForGym(ctx, gym, year, month, dueDate, deadline); err != nil {
			switch {
			case errors.Is(err, domain.ErrBillingAlreadyExists):
				outcome = outcomeAlreadyExists
			case errors.Is(err, domain.ErrNoBillableMembers):
				outcome = outcomeSkipped
			default:
				outcome = outcomeFailed
				s.logger.Error().Err(err).
					Str("gym_id", gym.ID.String()).
					Int("year", year).
					Int("month", month).
					Msg("Failed to create billing for gym")
			}
		}
		result.record(outcome, gym.ID)
		s.recordSweep(outcome)
	}

	s.logger.Info().
		Int("year", year).
		Int("month", month).
		Int("total", result.TotalGyms).
		Int("created", result.Created).
		Int("existing", result.AlreadyExists).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Billing creation sweep completed")

	return result, nil
}

// createForGym computes and stores a bill, emitting side effects on success
func (s *BillingService) createForGym(ctx context.Context, gym *domain.Gym, year, month int, dueDate, deadline time.Time) (*domain.MonthlyBilling, error) {
	if _, err := s.billingRepo.GetByGymAndPeriod(ctx, gym.ID, year, month); err == nil {
		return nil, domain.ErrBillingAlreadyExists
	} else if !errors.Is(err, domain.ErrBillingNotFound) {
		return nil, err
	}

	members, err := s.memberRepo.ListByGym(ctx, gym.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	result, err := calculator.CalculateMonth(members, calculator.Options{
		Year:       year,
		Month:      month,
		MonthlyFee: s.settings.MonthlyFee,
	})
	if err != nil {
		return nil, err
	}
	if result.IsEmpty() {
		return nil, domain.ErrNoBillableMembers
	}

	billing := s.buildBilling(gym, result, domain.BillingStatusSent, domain.FormatBillingID(gym.ID, year, month))
	billing.DueDate = dueDate
	billing.PaymentDeadline = deadline

	// The unique (gym, year, month) constraint decides concurrent creates
	created, err := s.billingRepo.Create(ctx, billing)
	if err != nil {
		return nil, err
	}

	s.afterChange(ctx, created, messaging.RoutingKeyBillingCreated, websocket.BillingCreated(newBillingEventPayload(created)))
	return created, nil
}

// AddPayment settles a bill in full. Partial payments are not supported.
func (s *BillingService) AddPayment(ctx context.Context, input AddPaymentInput) (*domain.MonthlyBilling, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, domain.ErrInvalidPaymentMethod
	}

	billing, err := s.billingRepo.GetByID(ctx, input.BillingRecordID)
	if err != nil {
		return nil, err
	}
	if input.GymID != nil && billing.GymID != *input.GymID {
		// Do not reveal other gyms' records
		return nil, domain.ErrBillingNotFound
	}
	if billing.IsFullyPaid() {
		s.recordOperation(OpPayment, domain.ErrBillingAlreadyPaid)
		return nil, domain.ErrBillingAlreadyPaid
	}

	transactionID := input.TransactionID
	if input.PaymentMethod == domain.PaymentMethodRazorpay {
		if err := s.verifyGatewayPayment(input); err != nil {
			s.recordOperation(OpPayment, err)
			return nil, err
		}
		if transactionID == "" {
			transactionID = input.RazorpayPaymentID
		}
	}

	event := domain.PaymentEvent{
		ID:               uuid.New(),
		Amount:           billing.TotalBillAmount,
		PaymentMethod:    input.PaymentMethod,
		TransactionID:    transactionID,
		Description:      input.Description,
		RecordedBy:       input.RecordedBy,
		GatewayOrderID:   input.RazorpayOrderID,
		GatewayPaymentID: input.RazorpayPaymentID,
		PaidAt:           s.now().UTC(),
	}

	// Conditional update: a concurrent payment that won the race makes this one fail
	updated, err := s.billingRepo.ApplyFullPayment(ctx, billing.ID, event)
	if err != nil {
		s.recordOperation(OpPayment, err)
		return nil, err
	}

	s.recordOperation(OpPayment, nil)
	s.logger.Info().
		Str("gym_id", updated.GymID.String()).
		Str("billing_id", updated.BillingID).
		Str("method", string(input.PaymentMethod)).
		Str("amount", event.Amount.StringFixed(2)).
		Msg("Billing paid")

	s.afterChange(ctx, updated, messaging.RoutingKeyBillingPaid, websocket.BillingPaid(newBillingEventPayload(updated)))
	return updated, nil
}

func (s *BillingService) verifyGatewayPayment(input AddPaymentInput) error {
	if s.verifier == nil {
		return fmt.Errorf("%w: gateway verification is not configured", domain.ErrPaymentSignatureInvalid)
	}
	if err := s.verifier.Verify(input.RazorpayOrderID, input.RazorpayPaymentID, input.RazorpaySignature); err != nil {
		if errors.Is(err, domain.ErrPaymentSignatureInvalid) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPaymentSignatureInvalid, err)
	}
	return nil
}

// FinalizeBilling freezes a stored bill
func (s *BillingService) FinalizeBilling(ctx context.Context, billingRecordID uuid.UUID) (*domain.MonthlyBilling, error) {
	finalized, err := s.billingRepo.MarkFinalized(ctx, billingRecordID, s.now().UTC())
	if err != nil {
		s.recordOperation(OpFinalize, err)
		return nil, err
	}
	s.recordOperation(OpFinalize, nil)
	s.onFinalized(ctx, finalized)
	return finalized, nil
}

// FinalizePreviousMonth makes sure every gym has a finalized bill for the month before the
// current business month. Gyms are processed one by one; a failing gym is logged and counted
// and never aborts the sweep. Running it again only reports already finalized records.
func (s *BillingService) FinalizePreviousMonth(ctx context.Context) (*SweepResult, error) {
	start := time.Now()
	now := s.localNow()
	year, month := util.PreviousMonth(now.Year(), int(now.Month()))

	gyms, err := s.gymRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list gyms: %w", err)
	}

	result := &SweepResult{Year: year, Month: month, TotalGyms: len(gyms), FailedGymIDs: []uuid.UUID{}}
	s.logger.Info().Int("year", year).Int("month", month).Int("gyms", len(gyms)).Msg("Starting month finalization")

	for _, gym := range gyms {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, err := s.finalizeGymPeriod(ctx, gym, year, month)
		if err != nil {
			s.logger.Error().Err(err).
				Str("gym_id", gym.ID.String()).
				Int("year", year).
				Int("month", month).
				Msg("Failed to finalize billing for gym")
		}
		result.record(outcome, gym.ID)
		s.recordSweep(outcome)
	}

	if s.metrics != nil {
		s.metrics.RecordSweepDuration(time.Since(start))
	}
	s.logger.Info().
		Int("year", year).
		Int("month", month).
		Int("total", result.TotalGyms).
		Int("created", result.Created).
		Int("finalized", result.Finalized).
		Int("already_finalized", result.AlreadyFinalized).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("Month finalization completed")

	return result, nil
}

// finalizeGymPeriod returns the sweep outcome for one gym
func (s *BillingService) finalizeGymPeriod(ctx context.Context, gym *domain.Gym, year, month int) (string, error) {
	if !gym.ExistedDuring(year, month, s.settings.Location) {
		return outcomeSkipped, nil
	}

	outcome := outcomeFinalized
	existing, err := s.billingRepo.GetByGymAndPeriod(ctx, gym.ID, year, month)
	if errors.Is(err, domain.ErrBillingNotFound) {
		dueDate, deadline, _ := resolveDueDates(year, month, nil, nil)
		existing, err = s.createForGym(ctx, gym, year, month, dueDate, deadline)
		switch {
		case err == nil:
			outcome = outcomeCreated
		case errors.Is(err, domain.ErrNoBillableMembers):
			return outcomeSkipped, nil
		case errors.Is(err, domain.ErrBillingAlreadyExists):
			// Lost a race with a concurrent create; finalize the winner's record
			existing, err = s.billingRepo.GetByGymAndPeriod(ctx, gym.ID, year, month)
		}
	}
	if err != nil {
		return outcomeFailed, err
	}

	if existing.IsFinalized {
		return outcomeAlreadyFinalized, nil
	}

	finalized, err := s.billingRepo.MarkFinalized(ctx, existing.ID, s.now().UTC())
	if errors.Is(err, domain.ErrBillingAlreadyFinalized) {
		return outcomeAlreadyFinalized, nil
	}
	if err != nil {
		return outcomeFailed, err
	}

	s.onFinalized(ctx, finalized)
	return outcome, nil
}

// ListBillingsForMonth returns every stored bill of a month, ordered by gym name
func (s *BillingService) ListBillingsForMonth(ctx context.Context, year, month int) ([]*domain.MonthlyBilling, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	billings, err := s.billingRepo.ListByPeriod(ctx, year, month)
	if err != nil {
		return nil, err
	}
	sort.Slice(billings, func(i, j int) bool {
		return billings[i].GymName < billings[j].GymName
	})
	return billings, nil
}

func (s *BillingService) onFinalized(ctx context.Context, billing *domain.MonthlyBilling) {
	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, billing); err != nil {
			s.logger.Warn().Err(err).Str("billing_id", billing.BillingID).Msg("Failed to archive finalized billing")
		}
	}
	s.afterChange(ctx, billing, messaging.RoutingKeyBillingFinalized, websocket.BillingFinalized(newBillingEventPayload(billing)))
}

// afterChange fans out a billing change. Failures are logged and never returned.
func (s *BillingService) afterChange(ctx context.Context, billing *domain.MonthlyBilling, routingKey string, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(billing.GymID, event)
	}
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, routingKey, newBillingEventPayload(billing)); err != nil {
			s.logger.Warn().Err(err).
				Str("routing_key", routingKey).
				Str("billing_id", billing.BillingID).
				Msg("Failed to publish billing event")
		}
	}
	if s.dashboard != nil {
		if err := s.dashboard.Invalidate(ctx, billing.GymID); err != nil {
			s.logger.Warn().Err(err).Str("gym_id", billing.GymID.String()).Msg("Failed to invalidate dashboard cache")
		}
	}
}

func (s *BillingService) recordOperation(operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "success"
	switch {
	case err == nil:
	case isBusinessRejection(err):
		result = "rejected"
	default:
		result = "error"
	}
	s.metrics.RecordBillingOperation(operation, result)
}

func (s *BillingService) recordSweep(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSweepOutcome(outcome, 1)
	}
}

func isBusinessRejection(err error) bool {
	return errors.Is(err, domain.ErrBillingAlreadyExists) ||
		errors.Is(err, domain.ErrBillingAlreadyPaid) ||
		errors.Is(err, domain.ErrBillingAlreadyFinalized) ||
		errors.Is(err, domain.ErrNoBillableMembers) ||
		errors.Is(err, domain.ErrBillingNotFound) ||
		errors.Is(err, domain.ErrPaymentSignatureInvalid)
}

func (s *BillingService) buildBilling(gym *domain.Gym, result *calculator.Result, status domain.BillingStatus, billingID string) *domain.MonthlyBilling {
	return &domain.MonthlyBilling{
		BillingID:          billingID,
		GymID:              gym.ID,
		GymName:            gym.Name,
		BillingMonth:       result.Month,
		BillingYear:        result.Year,
		MemberBills:        result.MemberBills,
		Breakdown:          result.Breakdown,
		TotalMembers:       result.TotalMembers,
		TotalBillAmount:    result.TotalBillAmount,
		TotalPaidAmount:    decimal.Zero,
		TotalPendingAmount: result.TotalBillAmount,
		TotalOverdueAmount: decimal.Zero,
		Currency:           s.settings.Currency,
		BillingStatus:      status,
		PaymentHistory:     []domain.PaymentEvent{},
	}
}

func validatePeriod(year, month int) error {
	if month < 1 || month > 12 || year < domain.MinBillingYear || year > domain.MaxBillingYear {
		return domain.ErrInvalidBillingPeriod
	}
	return nil
}

// resolveDueDates defaults both dates to the last day of the month
func resolveDueDates(year, month int, dueDate, deadline *time.Time) (time.Time, time.Time, error) {
	monthStart, monthEnd := util.MonthBoundaries(year, month)

	due := monthEnd
	if dueDate != nil {
		due = util.DateOnly(*dueDate)
		if due.Before(monthStart) {
			return time.Time{}, time.Time{}, domain.ErrInvalidDueDate
		}
	}

	last := due
	if deadline != nil {
		last = util.DateOnly(*deadline)
		if last.Before(due) {
			return time.Time{}, time.Time{}, domain.ErrInvalidDueDate
		}
	}
	return due, last, nil
}
