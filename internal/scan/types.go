package scan

import (
	"context"
	"net/url"
	"time"
)

// Severity buckets findings for scoring, ordered by decreasing weight.
// Info and Excellent carry no deduction.
type Severity string

const (
	SeverityCritical  Severity = "critical"
	SeverityHigh      Severity = "high"
	SeverityMedium    Severity = "medium"
	SeverityLow       Severity = "low"
	SeverityWarning   Severity = "warning"
	SeverityInfo      Severity = "info"
	SeverityExcellent Severity = "excellent"
)

// Known reports whether s is one of the enumerated severities. Findings with
// unknown severities score as zero weight and are logged as anomalous rather
// than silently passing.
func (s Severity) Known() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow,
		SeverityWarning, SeverityInfo, SeverityExcellent:
		return true
	}
	return false
}

// Finding is one detected condition. IDs are unique within a single run,
// not globally.
type Finding struct {
	ID             string   `json:"id"`
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation,omitempty"`
	BusinessImpact string   `json:"businessImpact,omitempty"`
}

// Mode gates which module tiers a run may execute.
// business ⊂ engineer ⊂ super-admin.
type Mode string

const (
	ModeBusiness   Mode = "business"
	ModeEngineer   Mode = "engineer"
	ModeSuperAdmin Mode = "super-admin"
)

// ParseMode validates a caller-supplied mode string.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeBusiness, ModeEngineer, ModeSuperAdmin:
		return Mode(s), true
	}
	return "", false
}

// Includes reports whether m's tier set contains tier. Every mode includes
// the business tier.
func (m Mode) Includes(tier Mode) bool {
	switch tier {
	case ModeBusiness:
		return true
	case ModeEngineer:
		return m == ModeEngineer || m == ModeSuperAdmin
	case ModeSuperAdmin:
		return m == ModeSuperAdmin
	}
	return false
}

// Context is the immutable input to a single scan run. It is constructed once
// from validated request parameters and never persisted.
type Context struct {
	URL      *url.URL
	RawURL   string
	Mode     Mode
	Selected []string // keys the caller requested, in request order
}

// Meta records audit information about one dispatch.
type Meta struct {
	DurationMs int64    `json:"durationMs"`
	ScanKeys   []string `json:"scanKeys"`
}

// Scores holds the two aggregate risk scores, both integers in [0,100].
type Scores struct {
	BusinessScore  int `json:"businessScore"`
	TechnicalScore int `json:"technicalScore"`
}

// Bundle is the output of one scan run. Findings appear in tier execution
// order, then per-tier emission order; they are never re-sorted.
type Bundle struct {
	Findings []Finding `json:"findings"`
	Meta     Meta      `json:"meta"`
	Scores   Scores    `json:"scores"`
}

// Module is the contract every probe satisfies: consume a scan context,
// produce findings. Implementations must be side-effect free with respect to
// each other and honor ctx cancellation.
type Module interface {
	Key() string
	Scan(ctx context.Context, sc Context) ([]Finding, error)
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc struct {
	ModuleKey string
	Fn        func(ctx context.Context, sc Context) ([]Finding, error)
}

func (m ModuleFunc) Key() string { return m.ModuleKey }

func (m ModuleFunc) Scan(ctx context.Context, sc Context) ([]Finding, error) {
	return m.Fn(ctx, sc)
}

// now is an injection seam for tests.
var now = time.Now
