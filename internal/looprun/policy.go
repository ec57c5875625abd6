package looprun

import "time"

// TerminationConfig bounds a run. MaxCostUSD is nil when unconfigured, in
// which case the cost predicate never fires.
type TerminationConfig struct {
	MaxIterations          uint32
	MaxRuntimeSeconds      uint64
	MaxCostUSD             *float64
	MaxConsecutiveFailures uint32
}

// TerminationPolicy evaluates TerminationConfig's predicates against a
// LoopState, in the fixed priority order the orchestration loop depends on
// for reproducible shutdown behavior.
type TerminationPolicy struct {
	cfg TerminationConfig
	now func() time.Time
}

// NewTerminationPolicy creates a policy. now defaults to time.Now when nil.
func NewTerminationPolicy(cfg TerminationConfig, now func() time.Time) *TerminationPolicy {
	if now == nil {
		now = time.Now
	}
	return &TerminationPolicy{cfg: cfg, now: now}
}

// Evaluate checks, in order, whether the loop has been stopped externally,
// exceeded its consecutive-failure budget, exceeded its cost budget,
// exceeded its runtime budget, or exhausted its iteration budget. The first
// predicate that matches wins; later ones are not evaluated.
func (p *TerminationPolicy) Evaluate(s *LoopState) (TerminationReason, bool) {
	if s.Stopped {
		return ReasonStopped, true
	}
	if s.ConsecutiveFailures >= p.cfg.MaxConsecutiveFailures {
		return ReasonConsecutiveFailures, true
	}
	if p.cfg.MaxCostUSD != nil && s.CumulativeCost >= *p.cfg.MaxCostUSD {
		return ReasonMaxCost, true
	}
	if uint64(p.now().Sub(s.StartedAt).Seconds()) >= p.cfg.MaxRuntimeSeconds {
		return ReasonMaxRuntime, true
	}
	if s.Iteration >= p.cfg.MaxIterations {
		return ReasonMaxIterations, true
	}
	return "", false
}
