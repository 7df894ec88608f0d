package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/internal/pkg/metrics/counter"
)

const (
	CacheKeyDashboard = "statistics:dashboard"
	CacheExpiration   = 5 * time.Minute
)

// Dashboard is the admin overview of the platform.
type Dashboard struct {
	TotalUsers        int64                          `json:"totalUsers"`
	TotalCourses      int64                          `json:"totalCourses"`
	ActiveCourses     int64                          `json:"activeCourses"`
	ActiveEnrollments int64                          `json:"activeEnrollments"`
	Payments          map[models.PaymentStatus]int64 `json:"payments"`
	ApprovedRevenue   float64                        `json:"approvedRevenue"`
	TodayPayments     int64                          `json:"todayPayments"`
	Webhooks          []counter.WebhookCount         `json:"webhooks"`
	GeneratedAt       time.Time                      `json:"generatedAt"`
}

// Source computes a fresh dashboard.
type Source interface {
	Collect(ctx context.Context) (*Dashboard, error)
}

// WebhookCounts reads the webhook outcome counters.
type WebhookCounts interface {
	All(ctx context.Context) ([]counter.WebhookCount, error)
}

// Service serves the dashboard from Redis and recomputes it when the cached
// copy expired. Concurrent misses share one computation.
type Service struct {
	source   Source
	webhooks WebhookCounts
	rdb      *redis.Client
	ttl      time.Duration
	mu       sync.Mutex
}

func NewService(source Source, webhooks WebhookCounts, rdb *redis.Client) *Service {
	return &Service{source: source, webhooks: webhooks, rdb: rdb, ttl: CacheExpiration}
}

// NewServiceFromDB wires the GORM source.
func NewServiceFromDB(db *gorm.DB, webhooks WebhookCounts, rdb *redis.Client) *Service {
	return NewService(&gormSource{db: db, now: time.Now}, webhooks, rdb)
}

// Get returns the cached dashboard or computes a new one.
func (s *Service) Get(ctx context.Context) (*Dashboard, error) {
	if d, ok := s.cached(ctx); ok {
		return d, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.cached(ctx); ok {
		return d, nil
	}

	d, err := s.source.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if s.webhooks != nil {
		if counts, err := s.webhooks.All(ctx); err != nil {
			log.Warnf("[Statistics] webhook counters: %v", err)
		} else {
			d.Webhooks = counts
		}
	}
	if d.Webhooks == nil {
		d.Webhooks = []counter.WebhookCount{}
	}
	s.store(ctx, d)
	return d, nil
}

// Invalidate drops the cached dashboard.
func (s *Service) Invalidate(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, CacheKeyDashboard).Err(); err != nil {
		log.Warnf("[Statistics] invalidate: %v", err)
	}
}

func (s *Service) cached(ctx context.Context) (*Dashboard, bool) {
	if s.rdb == nil {
		return nil, false
	}
	raw, err := s.rdb.Get(ctx, CacheKeyDashboard).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[Statistics] read cache: %v", err)
		}
		return nil, false
	}
	var d Dashboard
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, false
	}
	return &d, true
}

func (s *Service) store(ctx context.Context, d *Dashboard) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, CacheKeyDashboard, raw, s.ttl).Err(); err != nil {
		log.Warnf("[Statistics] write cache: %v", err)
	}
}

type gormSource struct {
	db  *gorm.DB
	now func() time.Time
}

func (g *gormSource) Collect(ctx context.Context) (*Dashboard, error) {
	db := g.db.WithContext(ctx)
	d := &Dashboard{Payments: map[models.PaymentStatus]int64{}, GeneratedAt: g.now().UTC()}

	if err := db.Model(&models.User{}).Count(&d.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Course{}).Count(&d.TotalCourses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Course{}).Where("status = ?", models.CourseStatusActive).Count(&d.ActiveCourses).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Enrollment{}).Where("status = ?", models.EnrollmentStatusActive).Count(&d.ActiveEnrollments).Error; err != nil {
		return nil, err
	}

	var rows []struct {
		Status models.PaymentStatus
		Total  int64
		Amount float64
	}
	if err := db.Model(&models.Payment{}).
		Select("status, COUNT(*) AS total, COALESCE(SUM(amount), 0) AS amount").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		d.Payments[row.Status] = row.Total
		if row.Status == models.PaymentStatusApproved {
			d.ApprovedRevenue = row.Amount
		}
	}

	start := d.GeneratedAt.Truncate(24 * time.Hour)
	if err := db.Model(&models.Payment{}).Where("created_at >= ?", start).Count(&d.TodayPayments).Error; err != nil {
		return nil, err
	}
	return d, nil
}
