// Package engine drives the weekly simulation: the phase clock, the
// simulation that wires every system to the bus, and a paced runner.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// PhasesPerWeek is the phase count of a week without holidays: five weekday
// phases plus two phases each on Saturday and Sunday.
const PhasesPerWeek = 9

// Engine steps a simulation forward at a fixed pace.
type Engine struct {
	Steps    uint64        // Steps taken (monotonic, never resets)
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Base step interval; 0 steps as fast as possible

	// Step advances the simulation once.
	Step func() error

	// OnWeek runs after a step that started a new week.
	OnWeek func(steps uint64) error

	// NewWeek reports whether the last step started a new week.
	NewWeek func() bool
}

// NewEngine creates an engine with default settings.
func NewEngine(step func() error) *Engine {
	return &Engine{
		Speed:    1.0,
		Interval: time.Second,
		Step:     step,
	}
}

// Run steps until limit steps have run (0 means no limit), ctx is done, or a
// step fails. A step in progress is never interrupted.
func (e *Engine) Run(ctx context.Context, limit uint64) error {
	slog.Info("simulation engine started", "steps", e.Steps, "speed", e.Speed, "interval", e.Interval)
	defer func() { slog.Info("simulation engine stopped", "steps", e.Steps) }()

	var ran uint64
	for limit == 0 || ran < limit {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Speed <= 0 {
			// Paused; sleep briefly and check again.
			if err := sleep(ctx, 100*time.Millisecond); err != nil {
				return err
			}
			continue
		}

		start := time.Now()
		if err := e.step(); err != nil {
			return err
		}
		ran++

		if e.Interval <= 0 {
			continue
		}
		// Sleep for the remainder of the interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			if err := sleep(ctx, target-elapsed); err != nil {
				return err
			}
		}
	}
	return nil
}

// step advances the simulation once and fires the weekly hook.
func (e *Engine) step() error {
	e.Steps++
	if err := e.Step(); err != nil {
		return fmt.Errorf("step %d: %w", e.Steps, err)
	}
	if e.OnWeek != nil && e.NewWeek != nil && e.NewWeek() {
		if err := e.OnWeek(e.Steps); err != nil {
			return fmt.Errorf("week hook at step %d: %w", e.Steps, err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
