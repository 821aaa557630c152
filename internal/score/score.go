// Package score turns an accumulated finding list into the two aggregate
// risk scores. Scoring is a pure, commutative fold: the result is identical
// for any permutation of the same findings.
package score

import (
	"go.uber.org/zap"

	"github.com/quangmanh-dev/webscan/internal/scan"
)

// Deduction is the amount a single finding of one severity subtracts from
// each score. Business and technical weights differ: technical deductions
// are larger for the graded severities.
type Deduction struct {
	Business  int
	Technical int
}

// Weights maps severities to deductions. Severities absent from the table
// (and the info/excellent buckets) deduct nothing.
type Weights map[scan.Severity]Deduction

// DefaultWeights is the documented default deduction table. Callers tune it
// through configuration rather than editing these numbers.
func DefaultWeights() Weights {
	return Weights{
		scan.SeverityCritical: {Business: 25, Technical: 30},
		scan.SeverityHigh:     {Business: 15, Technical: 20},
		scan.SeverityMedium:   {Business: 8, Technical: 10},
		scan.SeverityLow:      {Business: 3, Technical: 5},
		scan.SeverityWarning:  {Business: 2, Technical: 2},
	}
}

// Engine computes scores from findings. It is stateless apart from its
// weight table and safe for concurrent use.
type Engine struct {
	weights Weights
	logger  *zap.Logger
}

// New builds an Engine. A nil weights map falls back to DefaultWeights.
func New(weights Weights, logger *zap.Logger) *Engine {
	if weights == nil {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{weights: weights, logger: logger}
}

// Score starts both scores at 100, subtracts the severity deduction of every
// finding, and clamps at 0. Unknown severities deduct nothing but are logged
// as anomalous so they never silently pass.
func (e *Engine) Score(findings []scan.Finding) scan.Scores {
	business, technical := 100, 100
	for _, f := range findings {
		if !f.Severity.Known() {
			e.logger.Warn("finding carries unknown severity",
				zap.String("finding", f.ID),
				zap.String("severity", string(f.Severity)),
			)
			continue
		}
		d := e.weights[f.Severity]
		business -= d.Business
		technical -= d.Technical
	}
	return scan.Scores{
		BusinessScore:  clamp(business),
		TechnicalScore: clamp(technical),
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
