package counter

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
)

const webhookOutcomesKey = "billing:counters:webhooks"

// Outcome labels for webhook deliveries.
const (
	OutcomeApplied   = "applied"
	OutcomePending   = "pending"
	OutcomeIgnored   = "ignored"
	OutcomeDuplicate = "duplicate"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// WebhookCount is one provider/outcome pair.
type WebhookCount struct {
	Provider string `json:"provider"`
	Outcome  string `json:"outcome"`
	Count    int64  `json:"count"`
}

// Webhooks counts webhook deliveries per provider and outcome in a Redis hash.
// A nil *Webhooks is valid and counts nothing.
type Webhooks struct {
	rdb *redis.Client
}

func NewWebhooks(rdb *redis.Client) *Webhooks {
	if rdb == nil {
		return nil
	}
	return &Webhooks{rdb: rdb}
}

// Add increments the counter for provider and outcome. Errors are logged only;
// counting never fails a delivery.
func (w *Webhooks) Add(ctx context.Context, provider, outcome string) {
	if w == nil {
		return
	}
	if err := w.rdb.HIncrBy(ctx, webhookOutcomesKey, provider+"|"+outcome, 1).Err(); err != nil {
		log.Warnf("[Counter] webhook %s/%s: %v", provider, outcome, err)
	}
}

// All returns every counter sorted by provider, then outcome.
func (w *Webhooks) All(ctx context.Context) ([]WebhookCount, error) {
	if w == nil {
		return nil, nil
	}
	data, err := w.rdb.HGetAll(ctx, webhookOutcomesKey).Result()
	if err != nil {
		return nil, err
	}
	return parseCounts(data), nil
}

// Reset drops all counters.
func (w *Webhooks) Reset(ctx context.Context) error {
	if w == nil {
		return nil
	}
	return w.rdb.Del(ctx, webhookOutcomesKey).Err()
}

func parseCounts(data map[string]string) []WebhookCount {
	out := make([]WebhookCount, 0, len(data))
	for field, raw := range data {
		provider, outcome, ok := strings.Cut(field, "|")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n == 0 {
			continue
		}
		out = append(out, WebhookCount{Provider: provider, Outcome: outcome, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Outcome < out[j].Outcome
	})
	return out
}
