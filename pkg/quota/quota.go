// Package quota enforces per-identity request quotas using a trailing
// sliding window counted from audit records in the durable store. Unlike
// fixed calendar buckets, the trailing window avoids burst artifacts at
// bucket boundaries.
//
// The tracker fails open: if the count query fails, the request is allowed,
// because quota unavailability must not become a full outage.
package quota

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/modelgate/modelgate/pkg/storage"
)

// Tier is one endpoint-class limit: requests per trailing window for every
// endpoint under the path prefix.
type Tier struct {
	PathPrefix  string
	MaxRequests int
	Window      time.Duration
}

// Decision is the outcome of a quota check. ResetAt is an upper bound on
// when the window fully clears, not the exact moment the oldest entry
// expires.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// SetHeaders writes the rate-limit response headers. They are set on every
// governed request, allowed or denied.
func (d Decision) SetHeaders(h http.Header) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// Tracker decides allow/deny per identity and endpoint class.
type Tracker struct {
	store       storage.Store
	tiers       []Tier
	defaultTier Tier
	now         func() time.Time
}

// NewTracker creates a tracker with the given tier table. Tiers are matched
// longest prefix first; endpoints matching no tier use defaultTier.
func NewTracker(store storage.Store, tiers []Tier, defaultTier Tier) *Tracker {
	sorted := append([]Tier(nil), tiers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].PathPrefix) > len(sorted[j].PathPrefix)
	})
	return &Tracker{
		store:       store,
		tiers:       sorted,
		defaultTier: defaultTier,
		now:         time.Now,
	}
}

// TierFor resolves the endpoint's tier by longest-prefix match.
func (t *Tracker) TierFor(endpoint string) Tier {
	for _, tier := range t.tiers {
		if strings.HasPrefix(endpoint, tier.PathPrefix) {
			return tier
		}
	}
	return t.defaultTier
}

// Check counts the identity's audit entries for this endpoint inside the
// trailing window and decides allow/deny. A tier with MaxRequests <= 0 is
// ungoverned and always allows.
func (t *Tracker) Check(ctx context.Context, identityID int64, endpoint string) Decision {
	tier := t.TierFor(endpoint)
	now := t.now()

	if tier.MaxRequests <= 0 {
		return Decision{Allowed: true, ResetAt: now}
	}

	windowStart := now.Add(-tier.Window)
	count, err := t.store.CountAuditSince(ctx, identityID, endpoint, windowStart)
	if err != nil {
		// Fail open: the store being down must not take inference down too.
		slog.Warn("quota count failed, allowing request",
			"identity_id", identityID,
			"endpoint", endpoint,
			"error", err,
		)
		return Decision{
			Allowed:   true,
			Limit:     tier.MaxRequests,
			Remaining: tier.MaxRequests,
			ResetAt:   now.Add(tier.Window),
		}
	}

	remaining := tier.MaxRequests - count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   count < tier.MaxRequests,
		Limit:     tier.MaxRequests,
		Remaining: remaining,
		ResetAt:   now.Add(tier.Window),
	}
}
