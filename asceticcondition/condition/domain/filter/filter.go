// Package filter applies a compiled condition to a sequence of records.
package filter

import (
	"iter"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	condition "github.com/krew-solutions/ascetic-condition-go/asceticcondition/condition/domain"
)

// Observer is told about every evaluation a filter performs.
type Observer interface {
	ObserveEvaluation(matched bool, err error, elapsed time.Duration)
}

type Option func(*options)

type options struct {
	logger    *zap.Logger
	observer  Observer
	evaluator *condition.Evaluator
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

func WithEvaluator(evaluator *condition.Evaluator) Option {
	return func(o *options) {
		o.evaluator = evaluator
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:    zap.NewNop(),
		evaluator: condition.NewEvaluator(),
	}
	for i := range opts {
		opts[i](&o)
	}
	return o
}

// Filter lazily yields the records of records that satisfy tree, in input
// order. The first adapter or evaluation error is yielded once, wrapped with
// the record index, and ends the sequence. The returned sequence is as
// restartable as records is.
func Filter[R any](tree *condition.Tree, records iter.Seq[R], adapt Adapter[R], opts ...Option) iter.Seq2[R, error] {
	return FilterSeq2(tree, infallible(records), adapt, opts...)
}

// FilterSeq2 is Filter over a source that can fail. A source error is
// yielded and ends the sequence.
func FilterSeq2[R any](tree *condition.Tree, records iter.Seq2[R, error], adapt Adapter[R], opts ...Option) iter.Seq2[R, error] {
	o := newOptions(opts)
	return func(yield func(R, error) bool) {
		var zero R
		index := 0
		for record, err := range records {
			if err != nil {
				o.logger.Warn("record source failed", zap.Int("index", index), zap.Error(err))
				yield(zero, errors.Wrapf(err, "source record %d", index))
				return
			}
			matched, err := match(o, tree, record, adapt)
			if err != nil {
				o.logger.Warn("condition evaluation failed",
					zap.Int("index", index),
					zap.Stringer("condition", tree),
					zap.Error(err),
				)
				yield(zero, errors.Wrapf(err, "record %d", index))
				return
			}
			o.logger.Debug("record evaluated", zap.Int("index", index), zap.Bool("matched", matched))
			index++
			if matched && !yield(record, nil) {
				return
			}
		}
	}
}

func match[R any](o options, tree *condition.Tree, record R, adapt Adapter[R]) (matched bool, err error) {
	if o.observer != nil {
		started := time.Now()
		defer func() {
			o.observer.ObserveEvaluation(matched, err, time.Since(started))
		}()
	}
	ctx, err := adapt(record)
	if err != nil {
		return false, err
	}
	return o.evaluator.Evaluate(tree, ctx)
}

func infallible[R any](records iter.Seq[R]) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for record := range records {
			if !yield(record, nil) {
				return
			}
		}
	}
}

// Collect drains seq. It stops at the first error and returns the records
// collected before it.
func Collect[R any](seq iter.Seq2[R, error]) ([]R, error) {
	var result []R
	for record, err := range seq {
		if err != nil {
			return result, err
		}
		result = append(result, record)
	}
	return result, nil
}
