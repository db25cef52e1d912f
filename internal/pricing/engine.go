package pricing

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/CiaranKeogh/Portfolio-Projects/internal/infrastructure/observability"
	apperrors "github.com/CiaranKeogh/Portfolio-Projects/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// PackState is the per-pack state machine of a run:
// unclassified -> intentionally_missing, or
// unclassified -> needs_calculation -> calculated | unresolved
type PackState string

const (
	StateUnclassified         PackState = "unclassified"
	StateIntentionallyMissing PackState = "intentionally_missing"
	StateNeedsCalculation     PackState = "needs_calculation"
	StateCalculated           PackState = "calculated"
	StateUnresolved           PackState = "unresolved"
)

// Terminal reports whether no further transition is possible within a run
func (s PackState) Terminal() bool {
	return s == StateIntentionallyMissing || s == StateCalculated || s == StateUnresolved
}

// Decision is the terminal outcome of one pack
type Decision struct {
	PackID int64
	State  PackState
	// Reason is set for intentionally missing and unresolved packs
	Reason   entities.MissingReason
	Estimate *Estimated
	// Misses holds the reason each rule declined, for unresolved packs
	Misses []NoMatch
	// Err is a per-pack failure; the pack is unresolved
	Err error
}

// Config tunes the engine
type Config struct {
	Workers               int
	ReimbursableCodes     []int
	AvailableCode         int
	SimilarCandidateLimit int
}

// Engine classifies and estimates every unpriced pack of a snapshot
type Engine struct {
	classifier *Classifier
	rules      []Rule
	workers    int
}

// NewEngine creates an engine with the default rule cascade
func NewEngine(cfg Config) *Engine {
	return NewEngineWithRules(cfg, DefaultRules(cfg.SimilarCandidateLimit))
}

// NewEngineWithRules creates an engine with an explicit rule cascade
func NewEngineWithRules(cfg Config, rules []Rule) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		classifier: NewClassifier(cfg.ReimbursableCodes, cfg.AvailableCode),
		rules:      rules,
		workers:    workers,
	}
}

// Evaluate decides every unpriced pack of s. Packs are evaluated concurrently
// against the immutable snapshot; decisions are returned in ascending pack id
// order. Per-pack failures are captured on the decision and never abort the
// batch; only context cancellation does.
func (e *Engine) Evaluate(ctx context.Context, s *Snapshot) ([]Decision, error) {
	ctx, span := observability.StartSpan(ctx, "pricing.Engine.Evaluate")
	defer span.End()

	packs := s.UnpricedPacks()
	decisions := make([]Decision, len(packs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, packID := range packs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decisions[i] = e.EvaluatePack(gctx, s, packID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return decisions, nil
}

// EvaluatePack runs one pack through the state machine. It never panics.
func (e *Engine) EvaluatePack(ctx context.Context, s *Snapshot, packID int64) (d Decision) {
	logger := observability.LoggerFromContext(ctx).With().Int64("pack_id", packID).Logger()
	d = Decision{PackID: packID, State: StateUnclassified}

	defer func() {
		if r := recover(); r != nil {
			d = Decision{
				PackID: packID,
				State:  StateUnresolved,
				Reason: entities.ReasonUnknown,
				Err:    apperrors.NewInternalError(packMessage(packID, "evaluation panicked"), fmt.Errorf("%v", r)),
			}
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Pack evaluation panicked")
		}
	}()

	reason, err := e.classifier.Classify(s, packID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to classify pack")
		return unresolved(packID, err, nil)
	}
	if reason != entities.ReasonUnknown {
		d.State = StateIntentionallyMissing
		d.Reason = reason
		return d
	}
	d.State = StateNeedsCalculation

	target, err := s.ResolveTarget(packID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to resolve pack hierarchy")
		return unresolved(packID, err, nil)
	}

	estimate, misses := Cascade(e.rules, s, target)
	if estimate == nil {
		for i, miss := range misses {
			logger.Debug().Str("rule", string(e.rules[i].Method())).Str("reason", miss.Reason).Msg("Rule did not match")
		}
		return unresolved(packID, nil, misses)
	}

	logger.Debug().
		Str("method", string(estimate.Method)).
		Int64("price", estimate.Price).
		Float64("confidence", estimate.Confidence).
		Ints64("basis", estimate.Basis).
		Msg("Pack priced")
	d.State = StateCalculated
	d.Estimate = estimate
	return d
}

func unresolved(packID int64, err error, misses []NoMatch) Decision {
	return Decision{
		PackID: packID,
		State:  StateUnresolved,
		Reason: entities.ReasonUnknown,
		Misses: misses,
		Err:    err,
	}
}
