// Package recompute keeps decision intelligence current. Workflow hook
// sites call MaybeRecompute after mutations; the call is throttled
// per-case and wrapped in a crash-safe envelope so a failed recompute
// can never roll back the mutation that triggered it.
package recompute

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/intelligence"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/observability"
)

// DefaultThrottle is the minimum spacing between recomputes of one case.
const DefaultThrottle = 30 * time.Second

// Claimer decides whether this process may recompute a case now.
// The in-process implementation is the default; deployments running
// multiple instances can substitute the redis claimer.
type Claimer interface {
	TryClaim(ctx context.Context, caseID string, ttl time.Duration) bool
}

// mapClaimer is the single-instance throttle: a mutex-guarded map of
// case id to last recompute time.
type mapClaimer struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

func newMapClaimer() *mapClaimer {
	return &mapClaimer{last: make(map[string]time.Time), now: time.Now}
}

func (m *mapClaimer) TryClaim(_ context.Context, caseID string, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if ttl > 0 {
		if prev, ok := m.last[caseID]; ok && now.Sub(prev) < ttl {
			return false
		}
	}
	m.last[caseID] = now
	return true
}

// Recomputer wraps the intelligence repository behind the throttle.
type Recomputer struct {
	repo    *intelligence.Repository
	claimer Claimer
	metrics *observability.Provider
	logger  *slog.Logger
}

// Options tune a single MaybeRecompute call.
type Options struct {
	// Throttle overrides the per-case spacing; zero means DefaultThrottle,
	// negative disables the throttle (used by forced manual recomputes).
	Throttle time.Duration
	Actor    contracts.Actor
}

// New builds a recomputer with the in-process throttle map.
func New(repo *intelligence.Repository, metrics *observability.Provider) *Recomputer {
	return &Recomputer{
		repo:    repo,
		claimer: newMapClaimer(),
		metrics: metrics,
		logger:  slog.Default().With("component", "recompute"),
	}
}

// WithClaimer substitutes the throttle coordinator (e.g. redis).
func (r *Recomputer) WithClaimer(c Claimer) *Recomputer {
	r.claimer = c
	return r
}

// MaybeRecompute recomputes intelligence for a case unless throttled.
// Returns true only when a new history entry was written. Failures are
// logged and swallowed: the caller's mutation must never be rolled back
// because a downstream recompute failed.
func (r *Recomputer) MaybeRecompute(ctx context.Context, caseID, reason string, opts Options) (recomputed bool) {
	trigger := TriggerForReason(reason)
	actor := opts.Actor
	if actor.Role == "" {
		actor = contracts.SystemActor
	}

	throttle := opts.Throttle
	if throttle == 0 {
		throttle = DefaultThrottle
	}
	if throttle < 0 {
		throttle = 0
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recompute panicked",
				"case_id", caseID, "reason", reason, "panic", p)
			r.metrics.RecordRecompute(ctx, "failed", string(trigger))
			recomputed = false
		}
	}()

	if !r.claimer.TryClaim(ctx, caseID, throttle) {
		r.metrics.RecordRecompute(ctx, "throttled", string(trigger))
		return false
	}

	_, computed, err := r.repo.Compute(ctx, caseID, trigger, actor)
	if err != nil {
		r.logger.Error("recompute failed",
			"case_id", caseID, "reason", reason, "trigger", trigger, "error", err)
		r.metrics.RecordRecompute(ctx, "failed", string(trigger))
		return false
	}
	if !computed {
		r.metrics.RecordRecompute(ctx, "throttled", string(trigger))
		return false
	}
	r.metrics.RecordRecompute(ctx, "run", string(trigger))
	return true
}

// TriggerForReason maps a free-text reason to a trigger by
// case-insensitive substring match.
func TriggerForReason(reason string) contracts.Trigger {
	lower := strings.ToLower(reason)
	switch {
	case lower == "manual_recompute":
		return contracts.TriggerManual
	case strings.Contains(lower, "submission"):
		return contracts.TriggerSubmission
	case strings.Contains(lower, "evidence"), strings.Contains(lower, "attachment"):
		return contracts.TriggerEvidence
	case strings.Contains(lower, "request"), strings.Contains(lower, "info"):
		return contracts.TriggerRequestInfo
	case strings.Contains(lower, "decision"):
		return contracts.TriggerDecision
	default:
		return contracts.TriggerUnknown
	}
}
