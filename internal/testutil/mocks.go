package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/shopspring/decimal"
)

// MockGymRepository is a mock implementation of domain.GymRepository
type MockGymRepository struct {
	mu        sync.RWMutex
	Gyms      map[uuid.UUID]*domain.Gym
	ByAuth0ID map[string]*domain.Gym
	GetAllFn  func(ctx context.Context) ([]*domain.Gym, error)
}

// NewMockGymRepository creates a new MockGymRepository
func NewMockGymRepository() *MockGymRepository {
	return &MockGymRepository{
		Gyms:      make(map[uuid.UUID]*domain.Gym),
		ByAuth0ID: make(map[string]*domain.Gym),
	}
}

// GetByID retrieves a gym by ID
func (m *MockGymRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Gym, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if gym, ok := m.Gyms[id]; ok {
		return gym, nil
	}
	return nil, domain.ErrGymNotFound
}

// GetByOwnerAuth0ID retrieves a gym by its owner's Auth0 ID
func (m *MockGymRepository) GetByOwnerAuth0ID(ctx context.Context, auth0ID string) (*domain.Gym, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if gym, ok := m.ByAuth0ID[auth0ID]; ok {
		return gym, nil
	}
	return nil, domain.ErrGymNotFound
}

// GetAll retrieves all gyms ordered by creation time
func (m *MockGymRepository) GetAll(ctx context.Context) ([]*domain.Gym, error) {
	if m.GetAllFn != nil {
		return m.GetAllFn(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	gyms := make([]*domain.Gym, 0, len(m.Gyms))
	for _, g := range m.Gyms {
		gyms = append(gyms, g)
	}
	sortGyms(gyms)
	return gyms, nil
}

// AddGym adds a gym to the mock repository (helper for tests)
func (m *MockGymRepository) AddGym(gym *domain.Gym) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gyms[gym.ID] = gym
	if gym.OwnerAuth0ID != "" {
		m.ByAuth0ID[gym.OwnerAuth0ID] = gym
	}
}

func sortGyms(gyms []*domain.Gym) {
	sort.Slice(gyms, func(i, j int) bool {
		if gyms[i].CreatedAt.Equal(gyms[j].CreatedAt) {
			return gyms[i].Name < gyms[j].Name
		}
		return gyms[i].CreatedAt.Before(gyms[j].CreatedAt)
	})
}

// MockMemberRepository is a mock implementation of domain.MemberRepository
type MockMemberRepository struct {
	mu          sync.RWMutex
	Members     map[uuid.UUID][]*domain.Member
	ListByGymFn func(ctx context.Context, gymID uuid.UUID) ([]*domain.Member, error)
	Calls       int
}

// NewMockMemberRepository creates a new MockMemberRepository
func NewMockMemberRepository() *MockMemberRepository {
	return &MockMemberRepository{
		Members: make(map[uuid.UUID][]*domain.Member),
	}
}

// ListByGym retrieves all members of a gym
func (m *MockMemberRepository) ListByGym(ctx context.Context, gymID uuid.UUID) ([]*domain.Member, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.ListByGymFn != nil {
		return m.ListByGymFn(ctx, gymID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Member(nil), m.Members[gymID]...), nil
}

// AddMember adds a member to the mock repository (helper for tests)
func (m *MockMemberRepository) AddMember(member *domain.Member) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	m.Members[member.GymID] = append(m.Members[member.GymID], member)
}

// MockBillingRepository is a mock implementation of domain.BillingRepository.
// It enforces the (gym, year, month) uniqueness the database constraint provides.
type MockBillingRepository struct {
	mu             sync.Mutex
	Billings       map[uuid.UUID]*domain.MonthlyBilling
	CreateFn       func(ctx context.Context, billing *domain.MonthlyBilling) (*domain.MonthlyBilling, error)
	MarkFinalizeFn func(ctx context.Context, id uuid.UUID, at time.Time) (*domain.MonthlyBilling, error)
	CreateCalls    int
}

// NewMockBillingRepository creates a new MockBillingRepository
func NewMockBillingRepository() *MockBillingRepository {
	return &MockBillingRepository{
		Billings: make(map[uuid.UUID]*domain.MonthlyBilling),
	}
}

// Create inserts a billing record, failing on a duplicate period
func (m *MockBillingRepository) Create(ctx context.Context, billing *domain.MonthlyBilling) (*domain.MonthlyBilling, error) {
	m.mu.Lock()
	m.CreateCalls++
	m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(ctx, billing)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Billings {
		if b.GymID == billing.GymID && b.BillingYear == billing.BillingYear && b.BillingMonth == billing.BillingMonth {
			return nil, domain.ErrBillingAlreadyExists
		}
	}
	stored := CloneBilling(billing)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.Billings[stored.ID] = stored
	return CloneBilling(stored), nil
}

// GetByID retrieves a billing record by ID
func (m *MockBillingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MonthlyBilling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.Billings[id]; ok {
		return CloneBilling(b), nil
	}
	return nil, domain.ErrBillingNotFound
}

// GetByGymAndPeriod retrieves the billing record of a gym for a month
func (m *MockBillingRepository) GetByGymAndPeriod(ctx context.Context, gymID uuid.UUID, year, month int) (*domain.MonthlyBilling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Billings {
		if b.GymID == gymID && b.BillingYear == year && b.BillingMonth == month {
			return CloneBilling(b), nil
		}
	}
	return nil, domain.ErrBillingNotFound
}

// ListByPeriod retrieves all billing records for a month
func (m *MockBillingRepository) ListByPeriod(ctx context.Context, year, month int) ([]*domain.MonthlyBilling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.MonthlyBilling, 0)
	for _, b := range m.Billings {
		if b.BillingYear == year && b.BillingMonth == month {
			result = append(result, CloneBilling(b))
		}
	}
	return result, nil
}

// ListByGymAndPeriods retrieves the billing records of a gym for the given months
func (m *MockBillingRepository) ListByGymAndPeriods(ctx context.Context, gymID uuid.UUID, periods []domain.BillingPeriod) ([]*domain.MonthlyBilling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.MonthlyBilling, 0)
	for _, b := range m.Billings {
		if b.GymID != gymID {
			continue
		}
		for _, p := range periods {
			if b.BillingYear == p.Year && b.BillingMonth == p.Month {
				result = append(result, CloneBilling(b))
				break
			}
		}
	}
	return result, nil
}

// ApplyFullPayment settles a billing record unless it is already fully paid
func (m *MockBillingRepository) ApplyFullPayment(ctx context.Context, id uuid.UUID, payment domain.PaymentEvent) (*domain.MonthlyBilling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Billings[id]
	if !ok {
		return nil, domain.ErrBillingNotFound
	}
	if b.IsFullyPaid() {
		return nil, domain.ErrBillingAlreadyPaid
	}
	paid, pending, breakdown := b.FullPayment()
	b.TotalPaidAmount = paid
	b.TotalPendingAmount = pending
	b.Breakdown = breakdown
	b.BillingStatus = domain.BillingStatusFullyPaid
	b.PaymentHistory = append(b.PaymentHistory, payment)
	b.UpdatedAt = time.Now()
	return CloneBilling(b), nil
}

// MarkFinalized freezes a billing record
func (m *MockBillingRepository) MarkFinalized(ctx context.Context, id uuid.UUID, at time.Time) (*domain.MonthlyBilling, error) {
	if m.MarkFinalizeFn != nil {
		return m.MarkFinalizeFn(ctx, id, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.Billings[id]
	if !ok {
		return nil, domain.ErrBillingNotFound
	}
	if b.IsFinalized {
		return nil, domain.ErrBillingAlreadyFinalized
	}
	b.IsFinalized = true
	b.FinalizedAt = &at
	b.UpdatedAt = time.Now()
	return CloneBilling(b), nil
}

// AddBilling adds a billing record to the mock repository (helper for tests)
func (m *MockBillingRepository) AddBilling(billing *domain.MonthlyBilling) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if billing.ID == uuid.Nil {
		billing.ID = uuid.New()
	}
	m.Billings[billing.ID] = CloneBilling(billing)
}

// Count returns the number of stored billing records
func (m *MockBillingRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Billings)
}

// CloneBilling returns a copy that shares no slices with the original
func CloneBilling(b *domain.MonthlyBilling) *domain.MonthlyBilling {
	c := *b
	c.MemberBills = append([]domain.MemberBill(nil), b.MemberBills...)
	c.Breakdown = append([]domain.MembershipBreakdown(nil), b.Breakdown...)
	c.PaymentHistory = append([]domain.PaymentEvent(nil), b.PaymentHistory...)
	if b.FinalizedAt != nil {
		at := *b.FinalizedAt
		c.FinalizedAt = &at
	}
	return &c
}

// NewTestGym builds a gym created well before any month under test
func NewTestGym(name, ownerAuth0ID string) *domain.Gym {
	return &domain.Gym{
		ID:           uuid.New(),
		Name:         name,
		OwnerAuth0ID: ownerAuth0ID,
		Status:       domain.GymStatusActive,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewTestMember builds a member of a gym with the given membership dates
func NewTestMember(gymID uuid.UUID, name string, start, end *time.Time) *domain.Member {
	return &domain.Member{
		ID:                  uuid.New(),
		GymID:               gymID,
		Name:                name,
		MembershipType:      domain.MembershipTypeMonthly,
		MembershipFees:      decimal.NewFromInt(1500),
		MembershipStartDate: start,
		MembershipEndDate:   end,
	}
}

// Date returns a pointer to a UTC midnight date
func Date(year, month, day int) *time.Time {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &t
}
