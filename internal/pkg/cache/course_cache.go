package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const courseDetailTTL = 10 * time.Minute

// CourseCache stores rendered course detail documents. Failures are logged
// and treated as misses; the database stays the source of truth.
type CourseCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCourseCache(rdb *redis.Client) *CourseCache {
	return &CourseCache{rdb: rdb, ttl: courseDetailTTL}
}

func courseKey(id uint) string {
	return fmt.Sprintf("course:detail:%d", id)
}

// Get decodes the cached detail into dst and reports whether it was found.
func (c *CourseCache) Get(ctx context.Context, courseID uint, dst any) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	raw, err := c.rdb.Get(ctx, courseKey(courseID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warnf("[Cache] get course %d: %v", courseID, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Warnf("[Cache] decode course %d: %v", courseID, err)
		return false
	}
	return true
}

func (c *CourseCache) Put(ctx context.Context, courseID uint, v any) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		log.Warnf("[Cache] encode course %d: %v", courseID, err)
		return
	}
	if err := c.rdb.Set(ctx, courseKey(courseID), raw, c.ttl).Err(); err != nil {
		log.Warnf("[Cache] put course %d: %v", courseID, err)
	}
}

// Invalidate drops the cached detail after a catalog write.
func (c *CourseCache) Invalidate(ctx context.Context, courseID uint) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, courseKey(courseID)).Err(); err != nil {
		log.Warnf("[Cache] invalidate course %d: %v", courseID, err)
	}
}
