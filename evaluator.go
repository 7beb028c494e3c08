// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package radix

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Algorithm selects how the carry propagator resolves carries.
type Algorithm uint8

const (
	// AlgorithmAuto picks per call: the parallel-prefix algorithm when the
	// radix is long enough and parallel capacity exists, the sequential
	// chain otherwise.
	AlgorithmAuto Algorithm = iota
	// AlgorithmSequential chains one extraction per digit, least to most
	// significant. O(n) bootstraps but strictly sequential.
	AlgorithmSequential
	// AlgorithmParallelPrefix resolves carries with a Hillis-Steele prefix
	// network: O(n log n) bootstraps in O(log n) sequential rounds.
	AlgorithmParallelPrefix
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmAuto:
		return "auto"
	case AlgorithmSequential:
		return "sequential"
	case AlgorithmParallelPrefix:
		return "parallel-prefix"
	default:
		return "unknown"
	}
}

// Config tunes an Evaluator.
type Config struct {
	// Algorithm selects the carry propagation strategy.
	Algorithm Algorithm
	// MaxWorkers bounds the goroutines used inside one parallel region.
	// Zero means GOMAXPROCS.
	MaxWorkers int
}

// DefaultConfig returns sensible defaults for CPU execution.
func DefaultConfig() Config {
	return Config{
		Algorithm:  AlgorithmAuto,
		MaxWorkers: 0,
	}
}

// Evaluator composes single-digit engine operations into radix arithmetic:
// multi-operand summation, carry propagation and overflow detection. It is
// stateless apart from its engine and configuration and is safe for
// concurrent use.
type Evaluator struct {
	engine  BlockEngine
	params  Parameters
	algo    Algorithm
	workers int
}

// NewEvaluator creates an evaluator with DefaultConfig.
func NewEvaluator(engine BlockEngine) *Evaluator {
	return NewEvaluatorWithConfig(engine, DefaultConfig())
}

// NewEvaluatorWithConfig creates an evaluator with an explicit configuration.
func NewEvaluatorWithConfig(engine BlockEngine, cfg Config) *Evaluator {
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{
		engine:  engine,
		params:  engine.Parameters(),
		algo:    cfg.Algorithm,
		workers: workers,
	}
}

// Engine returns the underlying block engine.
func (ev *Evaluator) Engine() BlockEngine { return ev.engine }

// Parameters returns the digit layout the evaluator operates on.
func (ev *Evaluator) Parameters() Parameters { return ev.params }

// parallelFor runs fn for every index in [0, n) across at most MaxWorkers
// goroutines and joins before returning. The join is the barrier between
// propagation and reduction rounds: nothing from a later round may start
// until parallelFor returns.
func (ev *Evaluator) parallelFor(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if n == 1 || ev.workers == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	g := new(errgroup.Group)
	g.SetLimit(ev.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}

// join runs two independent computations concurrently and waits for both,
// the fork-join pair used for message/carry extraction off one accumulator.
func (ev *Evaluator) join(left, right func() error) error {
	if ev.workers == 1 {
		if err := left(); err != nil {
			return err
		}
		return right()
	}
	g := new(errgroup.Group)
	g.Go(left)
	g.Go(right)
	return g.Wait()
}
