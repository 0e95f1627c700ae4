package main

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	condition "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/entity"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/filter"
	"github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain/parser"
	conditionsql "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/infrastructure"
)

type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
	OutcomeSkip Outcome = "skip"
)

var errSkipped = errors.New("no database configured")

type Result struct {
	Scenario string
	Outcome  Outcome
	Detail   string
	Elapsed  time.Duration
}

type RunnerOption func(*Runner)

// WithDatabase enables query scenarios. Each query runs under timeout.
func WithDatabase(db conditionsql.Querier, timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		r.db = db
		r.queryTimeout = timeout
	}
}

func WithObserver(observer filter.Observer) RunnerOption {
	return func(r *Runner) {
		r.observer = observer
	}
}

func WithFailFast(failFast bool) RunnerOption {
	return func(r *Runner) {
		r.failFast = failFast
	}
}

type Runner struct {
	logger       *zap.Logger
	parser       *parser.Parser
	evaluator    *condition.Evaluator
	db           conditionsql.Querier
	queryTimeout time.Duration
	observer     filter.Observer
	failFast     bool
}

func NewRunner(logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		logger:       logger,
		parser:       parser.New(parser.WithLogger(logger)),
		evaluator:    condition.NewEvaluator(),
		queryTimeout: 30 * time.Second,
	}
	for i := range opts {
		opts[i](r)
	}
	return r
}

// Run checks scenarios in order. The returned error aggregates every failed
// scenario and is nil when all of them passed or were skipped.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) ([]Result, error) {
	results := make([]Result, 0, len(scenarios))
	var failures error
	for i := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, multierror.Append(failures, err)
		}
		s := &scenarios[i]
		started := time.Now()
		err := r.check(ctx, s)
		result := Result{Scenario: s.Name, Outcome: OutcomePass, Elapsed: time.Since(started)}
		switch {
		case errors.Is(err, errSkipped):
			result.Outcome = OutcomeSkip
			result.Detail = err.Error()
			r.logger.Info("scenario skipped", zap.String("scenario", s.Name), zap.String("reason", result.Detail))
		case err != nil:
			result.Outcome = OutcomeFail
			result.Detail = err.Error()
			failures = multierror.Append(failures, fmt.Errorf("%s: %w", s.Name, err))
			r.logger.Error("scenario failed", zap.String("scenario", s.Name), zap.Error(err))
		default:
			r.logger.Info("scenario passed", zap.String("scenario", s.Name), zap.Duration("elapsed", result.Elapsed))
		}
		results = append(results, result)
		if result.Outcome == OutcomeFail && r.failFast {
			break
		}
	}
	return results, failures
}

func (r *Runner) check(ctx context.Context, s *Scenario) error {
	tree, err := r.parse(s)
	if err != nil {
		return expectFailure(s, err)
	}
	if s.ExpectError == ExpectParseError {
		return fmt.Errorf("expected a parse error, got %s", tree)
	}
	r.logSQL(s, tree)

	switch {
	case s.Entities != nil:
		return r.checkEntities(s, tree)
	case s.Records != nil:
		return r.checkRecords(s, tree, recordsOf(s.Records))
	default:
		return r.checkQuery(ctx, s, tree)
	}
}

func (r *Runner) parse(s *Scenario) (*condition.Tree, error) {
	if s.Implicit != "" {
		return r.parser.ParseImplicit(s.Condition, s.Implicit)
	}
	return r.parser.Parse(s.Condition, s.DeclaredEntities()...)
}

func (r *Runner) logSQL(s *Scenario, tree *condition.Tree) {
	sql, params, err := conditionsql.Compile(tree)
	if err != nil {
		r.logger.Debug("condition has no SQL form", zap.String("scenario", s.Name), zap.Error(err))
		return
	}
	r.logger.Debug("compiled condition",
		zap.String("scenario", s.Name),
		zap.String("sql", sql),
		zap.Any("params", params),
	)
}

func (r *Runner) checkEntities(s *Scenario, tree *condition.Tree) error {
	names := make([]string, 0, len(s.Entities))
	for name := range s.Entities {
		names = append(names, name)
	}
	slices.Sort(names)
	bindings := make([]condition.Binding, 0, len(names))
	for _, name := range names {
		bindings = append(bindings, condition.Bind(name, entity.NewMapSource(s.Entities[name])))
	}
	ctx, err := condition.NewContext(bindings...)
	if err != nil {
		return err
	}

	got, err := r.evaluator.Evaluate(tree, ctx)
	if err != nil {
		return expectFailure(s, err)
	}
	if s.ExpectError != "" {
		return fmt.Errorf("expected a %s error, evaluated to %v", s.ExpectError, got)
	}
	if s.Expect != nil && got != *s.Expect {
		return fmt.Errorf("expected %v, evaluated to %v", *s.Expect, got)
	}
	return nil
}

func (r *Runner) checkQuery(ctx context.Context, s *Scenario, tree *condition.Tree) error {
	if r.db == nil {
		return errSkipped
	}
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()
	return r.checkRecords(s, tree, indexed(conditionsql.Rows(ctx, r.db, s.Query)))
}

func (r *Runner) checkRecords(s *Scenario, tree *condition.Tree, records iter.Seq2[indexedRecord, error]) error {
	adapt := filter.MapAdapter(s.RecordEntity())
	opts := []filter.Option{filter.WithLogger(r.logger), filter.WithEvaluator(r.evaluator)}
	if r.observer != nil {
		opts = append(opts, filter.WithObserver(r.observer))
	}

	matched, err := filter.Collect(filter.FilterSeq2(tree, records, func(record indexedRecord) (condition.Context, error) {
		return adapt(record.attributes)
	}, opts...))
	if err != nil {
		return expectFailure(s, err)
	}
	if s.ExpectError != "" {
		return fmt.Errorf("expected a %s error, %d records matched", s.ExpectError, len(matched))
	}

	got := make([]int, 0, len(matched))
	for _, record := range matched {
		got = append(got, record.index)
	}
	if s.ExpectMatches != nil && !slices.Equal(got, s.ExpectMatches) {
		return fmt.Errorf("expected matches %v, got %v", s.ExpectMatches, got)
	}
	if s.ExpectCount != nil && len(got) != *s.ExpectCount {
		return fmt.Errorf("expected %d matches, got %d", *s.ExpectCount, len(got))
	}
	return nil
}

// expectFailure returns nil when err is the kind of error s expects and err
// itself otherwise.
func expectFailure(s *Scenario, err error) error {
	var (
		parseErr   *condition.ParseError
		bindingErr *condition.BindingError
		typeErr    *condition.TypeError
	)
	switch s.ExpectError {
	case ExpectParseError:
		if errors.As(err, &parseErr) {
			return nil
		}
	case ExpectBindingError:
		if errors.As(err, &bindingErr) {
			return nil
		}
	case ExpectTypeError:
		if errors.As(err, &typeErr) {
			return nil
		}
	}
	return err
}

type indexedRecord struct {
	index      int
	attributes map[string]any
}

func recordsOf(records []map[string]any) iter.Seq2[indexedRecord, error] {
	return func(yield func(indexedRecord, error) bool) {
		for i, attributes := range records {
			if !yield(indexedRecord{i, attributes}, nil) {
				return
			}
		}
	}
}

func indexed(rows iter.Seq2[map[string]any, error]) iter.Seq2[indexedRecord, error] {
	return func(yield func(indexedRecord, error) bool) {
		i := 0
		for attributes, err := range rows {
			if !yield(indexedRecord{i, attributes}, err) {
				return
			}
			i++
		}
	}
}
