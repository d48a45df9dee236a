package service

import (
	"context"
	"fmt"
	"time"

	"go-clinic-appointments/internal/domain/repository"
	"go-clinic-appointments/internal/scheduling"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// Redis key prefix for per-(provider, date) occupied time-key sets
	RedisOccupancyKeyPrefix = "occupancy:"

	// Member stored in every cached set so that a day with zero occupied
	// slots is still distinguishable from a cache miss. Never matches a
	// normalized time key.
	occupancyEmptyMarker = "-"
)

// OccupancyRegistry exposes the per-provider occupancy registry: which
// normalized time keys are already taken per calendar date. It records
// presence only, no holder identity.
type OccupancyRegistry interface {
	// GetOccupied covers [from, from+days). Served from cache where warm.
	GetOccupied(ctx context.Context, providerID uuid.UUID, from time.Time, days int) (scheduling.Occupancy, error)
	// FreshOccupiedDate bypasses the cache and reads the appointment store
	// directly. Used on the booking commit path, where a stale read is not
	// acceptable.
	FreshOccupiedDate(ctx context.Context, providerID uuid.UUID, date time.Time) (map[string]struct{}, error)
	// Invalidate drops cached dates after a mutation so dependent views
	// re-derive occupancy.
	Invalidate(ctx context.Context, providerID uuid.UUID, dates ...time.Time)
}

// OccupancyService caches occupied time-key sets in Redis with the
// appointment store as the source of truth. Cache misses rebuild from the
// store; every booking mutation invalidates the affected dates.
type OccupancyService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	log             *logrus.Logger
	appointmentRepo repository.AppointmentRepository
}

func NewOccupancyService(db *gorm.DB, redisClient *redis.Client, log *logrus.Logger, appointmentRepo repository.AppointmentRepository) *OccupancyService {
	return &OccupancyService{
		db:              db,
		redisClient:     redisClient,
		log:             log,
		appointmentRepo: appointmentRepo,
	}
}

func (s *OccupancyService) GetOccupied(ctx context.Context, providerID uuid.UUID, from time.Time, days int) (scheduling.Occupancy, error) {
	dates := make([]time.Time, days)
	for i := range dates {
		dates[i] = from.AddDate(0, 0, i)
	}

	occ := make(scheduling.Occupancy, days)

	pipe := s.redisClient.Pipeline()
	cmds := make([]*redis.StringSliceCmd, days)
	for i, date := range dates {
		cmds[i] = pipe.SMembers(ctx, s.redisKey(providerID, date))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// Redis unavailable: serve straight from the store
		s.log.Warnf("Occupancy cache unavailable for provider %s, falling back to store: %+v", providerID, err)
		return s.loadRange(ctx, providerID, from, days)
	}

	var missing []time.Time
	for i, cmd := range cmds {
		members := cmd.Val()
		if len(members) == 0 {
			missing = append(missing, dates[i])
			continue
		}
		set := make(map[string]struct{}, len(members))
		for _, m := range members {
			if m == occupancyEmptyMarker {
				continue
			}
			set[scheduling.NormalizeTimeKey(m)] = struct{}{}
		}
		occ[scheduling.DateKey(dates[i])] = set
	}

	if len(missing) == 0 {
		return occ, nil
	}

	// One store read covers every missing date
	fresh, err := s.loadRange(ctx, providerID, from, days)
	if err != nil {
		return nil, err
	}
	for _, date := range missing {
		dateKey := scheduling.DateKey(date)
		set := fresh[dateKey]
		if set == nil {
			set = map[string]struct{}{}
		}
		occ[dateKey] = set
		s.cacheDate(ctx, providerID, date, set)
	}
	return occ, nil
}

func (s *OccupancyService) FreshOccupiedDate(ctx context.Context, providerID uuid.UUID, date time.Time) (map[string]struct{}, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	appointments, err := s.appointmentRepo.FindActiveByProviderBetween(s.db.WithContext(ctx), providerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load occupancy for provider %s on %s: %w", providerID, day.Format("2006-01-02"), err)
	}

	set := make(map[string]struct{}, len(appointments))
	for _, appointment := range appointments {
		set[appointment.SlotTimeKey] = struct{}{}
	}
	return set, nil
}

// Invalidate is best-effort: a failed delete only delays freshness until the
// key's TTL, it never affects booking correctness.
func (s *OccupancyService) Invalidate(ctx context.Context, providerID uuid.UUID, dates ...time.Time) {
	if len(dates) == 0 {
		return
	}
	keys := make([]string, len(dates))
	for i, date := range dates {
		keys[i] = s.redisKey(providerID, date)
	}
	if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
		s.log.Warnf("Failed to invalidate occupancy cache for provider %s (non-fatal): %+v", providerID, err)
	}
}

// loadRange reads the store for [from, from+days) and groups occupied keys
// by date.
func (s *OccupancyService) loadRange(ctx context.Context, providerID uuid.UUID, from time.Time, days int) (scheduling.Occupancy, error) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	appointments, err := s.appointmentRepo.FindActiveByProviderBetween(s.db.WithContext(ctx), providerID, start, start.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("load occupancy range for provider %s: %w", providerID, err)
	}

	occ := make(scheduling.Occupancy, days)
	for _, appointment := range appointments {
		dateKey := scheduling.DateKey(appointment.SlotDate)
		set, ok := occ[dateKey]
		if !ok {
			set = make(map[string]struct{})
			occ[dateKey] = set
		}
		set[appointment.SlotTimeKey] = struct{}{}
	}
	return occ, nil
}

func (s *OccupancyService) cacheDate(ctx context.Context, providerID uuid.UUID, date time.Time, keys map[string]struct{}) {
	redisKey := s.redisKey(providerID, date)
	members := make([]interface{}, 0, len(keys)+1)
	members = append(members, occupancyEmptyMarker)
	for key := range keys {
		members = append(members, key)
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Del(ctx, redisKey)
	pipe.SAdd(ctx, redisKey, members...)
	pipe.Expire(ctx, redisKey, s.calculateTTL(date))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warnf("Failed to cache occupancy for provider %s date %s (non-fatal): %+v", providerID, scheduling.DateKey(date), err)
	}
}

func (s *OccupancyService) redisKey(providerID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("%s%s:%s", RedisOccupancyKeyPrefix, providerID, scheduling.DateKey(date))
}

// calculateTTL returns TTL: 24 hours after the slot date
func (s *OccupancyService) calculateTTL(date time.Time) time.Duration {
	expireAt := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).AddDate(0, 0, 1)
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		// Past date - short TTL for cleanup
		return 1 * time.Minute
	}
	return ttl
}
