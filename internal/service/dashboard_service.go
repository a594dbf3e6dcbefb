package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/gymcrm/gymcrm-backend/internal/cache"
	"github.com/gymcrm/gymcrm-backend/internal/calculator"
	"github.com/gymcrm/gymcrm-backend/internal/domain"
	"github.com/gymcrm/gymcrm-backend/internal/util"
	"github.com/gymcrm/gymcrm-backend/internal/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// CacheMetrics records dashboard cache lookups
type CacheMetrics interface {
	RecordCacheLookup(hit bool)
}

// DashboardService computes per-gym dashboard summaries behind a short-lived cache
type DashboardService struct {
	gymRepo    domain.GymRepository
	memberRepo domain.MemberRepository
	cache      cache.DashboardCache
	settings   BillingSettings

	eventPublisher websocket.EventPublisher
	metrics        CacheMetrics
	now            func() time.Time
	logger         zerolog.Logger
}

// NewDashboardService creates a new DashboardService. A nil cache disables caching.
func NewDashboardService(
	gymRepo domain.GymRepository,
	memberRepo domain.MemberRepository,
	summaryCache cache.DashboardCache,
	settings BillingSettings,
) *DashboardService {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &DashboardService{
		gymRepo:    gymRepo,
		memberRepo: memberRepo,
		cache:      summaryCache,
		settings:   settings,
		now:        time.Now,
		logger:     log.Logger.With().Str("component", "dashboard").Logger(),
	}
}

// SetEventPublisher sets the WebSocket event publisher
func (s *DashboardService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the cache metrics recorder
func (s *DashboardService) SetMetrics(metrics CacheMetrics) {
	s.metrics = metrics
}

// SetClock overrides the time source (for tests)
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

// GetSummary returns the dashboard summary of a gym, served from cache when fresh
func (s *DashboardService) GetSummary(ctx context.Context, gymID uuid.UUID) (*domain.DashboardSummary, error) {
	if s.cache != nil {
		summary, ok := s.cache.Get(ctx, gymID)
		if s.metrics != nil {
			s.metrics.RecordCacheLookup(ok)
		}
		if ok {
			return summary, nil
		}
	}

	summary, err := s.compute(ctx, gymID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, gymID, summary); err != nil {
			s.logger.Warn().Err(err).Str("gym_id", gymID.String()).Msg("Failed to cache dashboard summary")
		}
	}
	return summary, nil
}

// Refresh drops the cached summary and recomputes it
func (s *DashboardService) Refresh(ctx context.Context, gymID uuid.UUID) (*domain.DashboardSummary, error) {
	if err := s.Invalidate(ctx, gymID); err != nil {
		s.logger.Warn().Err(err).Str("gym_id", gymID.String()).Msg("Failed to invalidate dashboard cache")
	}
	return s.GetSummary(ctx, gymID)
}

// Invalidate drops the cached summary and tells connected clients to refetch
func (s *DashboardService) Invalidate(ctx context.Context, gymID uuid.UUID) error {
	var err error
	if s.cache != nil {
		err = s.cache.Invalidate(ctx, gymID)
	}
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(gymID, websocket.DashboardInvalidated(map[string]string{"gymId": gymID.String()}))
	}
	return err
}

func (s *DashboardService) compute(ctx context.Context, gymID uuid.UUID) (*domain.DashboardSummary, error) {
	if _, err := s.gymRepo.GetByID(ctx, gymID); err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByGym(ctx, gymID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	now := s.now().In(s.settings.Location)
	today := util.DateOnly(now)
	soon := today.AddDate(0, 0, domain.ExpiringSoonDays)
	year, month := now.Year(), int(now.Month())

	summary := &domain.DashboardSummary{
		GymID:        gymID.String(),
		TotalMembers: len(members),
		GeneratedAt:  s.now().UTC(),
	}

	for _, m := range members {
		if m.IsActiveOn(today) {
			summary.ActiveMembers++
			if m.MembershipEndDate != nil && !util.DateOnly(*m.MembershipEndDate).After(soon) {
				summary.ExpiringSoon++
			}
		} else if m.MembershipEndDate != nil && util.DateOnly(*m.MembershipEndDate).Before(today) {
			summary.ExpiredMembers++
		}
		if m.MembershipStartDate != nil && util.IsSameMonth(*m.MembershipStartDate, year, month) {
			summary.NewThisMonth++
		}
	}

	counts := lo.CountValuesBy(members, func(m *domain.Member) domain.MembershipType {
		return m.MembershipType
	})
	summary.ByMembershipType = make([]domain.TypeCount, 0, len(counts))
	for t, n := range counts {
		summary.ByMembershipType = append(summary.ByMembershipType, domain.TypeCount{MembershipType: t, Count: n})
	}
	sort.Slice(summary.ByMembershipType, func(i, j int) bool {
		return summary.ByMembershipType[i].MembershipType < summary.ByMembershipType[j].MembershipType
	})

	result, err := calculator.CalculateMonth(members, calculator.Options{
		Year:       year,
		Month:      month,
		MonthlyFee: s.settings.MonthlyFee,
		AsOf:       now,
	})
	if err != nil {
		return nil, err
	}
	summary.CurrentBill = &domain.CurrentBillSnapshot{
		Year:              year,
		Month:             month,
		BilledMembers:     result.TotalMembers,
		TotalBillAmount:   result.TotalBillAmount,
		CalculatedThrough: result.CalculationEnd,
	}

	return summary, nil
}
