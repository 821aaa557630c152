package scan

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/quangmanh-dev/webscan/internal/shared/constants"
)

// Scorer folds an accumulated finding list into the two aggregate scores.
type Scorer interface {
	Score(findings []Finding) Scores
}

// Dispatcher orchestrates one scan run: it selects the reachable tiers for
// the requested mode, executes their modules in order, merges findings, and
// scores the result. It trusts the mode field: super-admin may only be set
// by the caller after successful elevation, no re-authentication happens here.
type Dispatcher struct {
	registry      *Registry
	scorer        Scorer
	logger        *zap.Logger
	pace          *rate.Limiter
	moduleTimeout time.Duration
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithModuleTimeout bounds each module's latency. Exceeding it means that
// module contributes zero findings.
func WithModuleTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.moduleTimeout = d
		}
	}
}

// WithPacing throttles outbound module execution to rps requests per second.
func WithPacing(rps int) DispatcherOption {
	return func(disp *Dispatcher) {
		if rps > 0 {
			disp.pace = rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}

// NewDispatcher builds a Dispatcher over the given module registry.
func NewDispatcher(registry *Registry, scorer Scorer, logger *zap.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		registry:      registry,
		scorer:        scorer,
		logger:        logger,
		moduleTimeout: constants.DefaultModuleTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// tierOrder is the fixed execution order. Business findings are included
// unconditionally; later tiers only run when the mode reaches them.
var tierOrder = []Mode{ModeBusiness, ModeEngineer, ModeSuperAdmin}

// Run executes one scan and always returns a bundle: a failing module is
// recovered, logged, and treated as zero findings. Exactly one attempt is
// made per applicable module, no retries.
func (d *Dispatcher) Run(ctx context.Context, sc Context) Bundle {
	start := now()

	allowed := FilterKeys(sc.Mode, sc.Selected)

	findings := make([]Finding, 0, 16)
	for _, tier := range tierOrder {
		if !sc.Mode.Includes(tier) {
			continue
		}
		for _, module := range d.registry.Tier(tier) {
			if !keySelected(allowed, module.Key()) {
				continue
			}
			findings = append(findings, d.runModule(ctx, module, sc)...)
		}
	}

	scores := d.scorer.Score(findings)

	return Bundle{
		Findings: findings,
		Meta: Meta{
			DurationMs: now().Sub(start).Milliseconds(),
			// The originally requested keys, not the filtered set, for audit.
			ScanKeys: sc.Selected,
		},
		Scores: scores,
	}
}

// runModule executes one module with a bounded context, recovering panics so
// a misbehaving probe never aborts the run.
func (d *Dispatcher) runModule(ctx context.Context, module Module, sc Context) (findings []Finding) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("scan module panicked",
				zap.String("module", module.Key()),
				zap.String("target", sc.RawURL),
				zap.Any("panic", r),
			)
			findings = nil
		}
	}()

	moduleCtx, cancel := context.WithTimeout(ctx, d.moduleTimeout)
	defer cancel()

	if d.pace != nil {
		if err := d.pace.Wait(moduleCtx); err != nil {
			d.logger.Warn("scan module skipped waiting for pacer",
				zap.String("module", module.Key()),
				zap.Error(err),
			)
			return nil
		}
	}

	out, err := module.Scan(moduleCtx, sc)
	if err != nil {
		d.logger.Warn("scan module failed",
			zap.String("module", module.Key()),
			zap.String("target", sc.RawURL),
			zap.Error(err),
		)
		return nil
	}
	return qualifyFindings(module.Key(), out)
}

// qualifyFindings prefixes finding ids with the module key so ids stay unique
// within a run even when two modules reuse a short id.
func qualifyFindings(moduleKey string, findings []Finding) []Finding {
	for i := range findings {
		if findings[i].ID == "" {
			findings[i].ID = fmt.Sprintf("%s-%d", moduleKey, i)
			continue
		}
		findings[i].ID = moduleKey + ":" + findings[i].ID
	}
	return findings
}

// keySelected reports whether key survives the caller's selection. A nil
// selection means the caller asked for everything the mode allows.
func keySelected(allowed []string, key string) bool {
	if allowed == nil {
		return true
	}
	for _, k := range allowed {
		if k == key {
			return true
		}
	}
	return false
}
