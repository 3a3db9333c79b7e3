package grading

import (
	"log/slog"
	"math"
)

const (
	DefaultPassThreshold = 33.0
	DefaultRankCutoff    = 10
)

// Status is the pass/fail outcome of an exam or a combined result.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Policy carries everything a computation needs besides the marks themselves.
// Callers build one per request from the school's active scale and config.
type Policy struct {
	Scale         Scale
	PassThreshold float64
	Logger        *slog.Logger

	// OnLookup, when set, observes every scale lookup.
	OnLookup func(Pass)
}

// NewPolicy returns a policy using the default pass threshold.
func NewPolicy(scale Scale) Policy {
	return Policy{Scale: scale, PassThreshold: DefaultPassThreshold}
}

func (p Policy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p Policy) grade(pct float64) Match {
	m := p.Scale.Lookup(pct)
	switch m.Pass {
	case PassUnrounded:
		p.logger().Warn("grade matched only on unrounded percentage",
			"percentage", pct, "rounded", math.Round(pct), "grade", m.Grade, "scale", p.Scale.Name)
	case PassNone:
		p.logger().Warn("grading range missing",
			"percentage", pct, "scale", p.Scale.Name, "ranges", len(p.Scale.Ranges))
	}
	if p.OnLookup != nil {
		p.OnLookup(m.Pass)
	}
	return m
}

func (p Policy) status(pct float64) Status {
	threshold := p.PassThreshold
	if threshold <= 0 {
		threshold = DefaultPassThreshold
	}
	if pct >= threshold {
		return StatusPass
	}
	return StatusFail
}

func percentOf(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return obtained / max * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
