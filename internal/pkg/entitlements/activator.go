package entitlements

import (
	"context"
	"errors"
	"time"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
)

// Activator grants course access. Activating the same (user, course) pair
// again only refreshes the activation timestamp.
type Activator struct {
	store Store
	now   func() time.Time
}

// NewActivator creates an activator from an injected store.
func NewActivator(store Store) *Activator {
	return &Activator{store: store, now: time.Now}
}

// NewActivatorFromDB creates an activator from a GORM DB handle.
func NewActivatorFromDB(db *gorm.DB) *Activator {
	return NewActivator(NewStore(db))
}

// Activate upserts an ACTIVE enrollment for the pair.
func (a *Activator) Activate(ctx context.Context, userID, courseID uint) (*models.Enrollment, error) {
	_ = ctx
	if userID == 0 || courseID == 0 {
		return nil, errors.New("user_id and course_id are required")
	}
	enrollment, err := a.store.UpsertActive(userID, courseID, a.now())
	if err != nil {
		return nil, err
	}
	log.Infof("[Enrollment] activated user=%d course=%d", userID, courseID)
	return enrollment, nil
}

// HasAccess reports whether the user holds an active, unexpired enrollment.
func (a *Activator) HasAccess(ctx context.Context, userID, courseID uint) (bool, error) {
	_ = ctx
	if userID == 0 || courseID == 0 {
		return false, nil
	}
	enrollment, err := a.store.Get(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return enrollment.GrantsAccess(a.now()), nil
}

// ListForUser returns every enrollment of a user with its course.
func (a *Activator) ListForUser(ctx context.Context, userID uint) ([]models.Enrollment, error) {
	_ = ctx
	return a.store.ListByUser(userID)
}
