// Package timeline implements the Timeline Compiler (C7): iterative
// fragment-timing resolution, per-fragment stream construction, joining
// via concat/xfade, container/app overlay, and cross-sequence composition
// into a final filter graph.
package timeline

import (
	"stsc/compileerr"
	"stsc/expr"
	"stsc/project"
)

// resolveSequence runs the iterative two-pass resolution described in
// spec.md §4.2/§4.7.1 over one sequence's fragments, using sharedCtx for
// references to fragments already resolved in earlier sequences and
// returning the sequence's own resolved fragments in source order. Before
// returning it merges this sequence's resolved timings back into
// sharedCtx, so later sequences can reference them.
func resolveSequence(seq *project.Sequence, assets map[string]*project.Asset, sharedCtx *expr.Context) ([]*project.FragmentResolved, error) {
	enabled := make([]*project.FragmentSpec, 0, len(seq.Fragments))
	for _, f := range seq.Fragments {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}

	local := map[string]expr.FieldTime{}
	for k, v := range sharedCtx.Fragments {
		local[k] = v
	}

	resolved := make(map[string]*project.FragmentResolved, len(enabled))

	for {
		progressed := false
		allDone := true
		for i, f := range enabled {
			if _, done := resolved[f.ID]; done {
				continue
			}
			var prevEnd int64
			var prevOK bool
			if i > 0 {
				if prev, ok := resolved[enabled[i-1].ID]; ok {
					prevEnd = prev.EndMs
					prevOK = true
				}
			} else {
				prevOK = true // first fragment: "previous end" is 0
			}

			startMs, startOK, err := resolveStart(f, prevEnd, prevOK, local)
			if err != nil {
				return nil, err
			}
			if !startOK {
				allDone = false
				continue
			}

			durationMs, durOK, err := resolveDuration(f, assets, local)
			if err != nil {
				return nil, err
			}
			if !durOK {
				allDone = false
				continue
			}
			if err := checkDurationOverflow(f, assets, durationMs); err != nil {
				return nil, err
			}

			fr := &project.FragmentResolved{Spec: f, StartMs: startMs, DurationMs: durationMs, EndMs: startMs + durationMs}
			resolved[f.ID] = fr
			local[f.ID] = expr.FieldTime{StartMs: fr.StartMs, EndMs: fr.EndMs, DurationMs: fr.DurationMs}
			progressed = true
		}
		if allDone {
			break
		}
		if !progressed {
			var remaining []string
			for _, f := range enabled {
				if _, ok := resolved[f.ID]; !ok {
					remaining = append(remaining, f.ID)
				}
			}
			return nil, &compileerr.UnresolvableExpression{FragmentIDs: remaining}
		}
	}

	out := make([]*project.FragmentResolved, len(enabled))
	for i, f := range enabled {
		out[i] = resolved[f.ID]
	}

	for k, v := range local {
		sharedCtx.Fragments[k] = v
	}
	return out, nil
}

// resolveStart computes a fragment's start time, returning ok=false when
// an expression reference isn't resolvable yet (so the caller retries on
// the next pass).
func resolveStart(f *project.FragmentSpec, prevEnd int64, prevOK bool, ctx map[string]expr.FieldTime) (int64, bool, error) {
	t := f.Start
	switch {
	case t.Expr != nil:
		ms, ok, err := tryEvaluate(t.Expr, ctx)
		return ms, ok, err
	case t.HasLiteral:
		return t.LiteralMs, true, nil
	default:
		// Absent: chain from the previous fragment's end, sliding earlier
		// when overlap-left is negative. Only retryable-blocked on the
		// previous fragment when it's this chaining rule that needs it;
		// a literal or expression start never waits on sequence order.
		if !prevOK {
			return 0, false, nil
		}
		return prevEnd + f.OverlapLeftMs, true, nil
	}
}

// resolveDuration computes a fragment's duration in milliseconds.
func resolveDuration(f *project.FragmentSpec, assets map[string]*project.Asset, ctx map[string]expr.FieldTime) (int64, bool, error) {
	t := f.Duration
	switch {
	case t.Expr != nil:
		return tryEvaluate(t.Expr, ctx)
	case t.Percent:
		if f.Kind != project.ReferentAsset {
			// Containers/apps have no source duration to measure against;
			// 100% is meaningless there and the builder should have
			// rejected it, but fail safe rather than panic.
			return 0, false, &compileerr.ExpressionEvalError{Text: "100%", Message: "percent duration requires an asset fragment"}
		}
		asset, ok := assets[f.Referent]
		if !ok {
			return 0, false, &compileerr.UnknownReference{FragmentID: f.ID, TargetName: f.Referent, TargetKind: "asset"}
		}
		return asset.DurationMs - f.TrimStartMs, true, nil
	case t.HasLiteral:
		return t.LiteralMs, true, nil
	default:
		return 0, false, &compileerr.ExpressionEvalError{Text: "", Message: "fragment " + f.ID + " has no duration"}
	}
}

// checkDurationOverflow enforces spec.md invariant 4: a resolved duration
// must never exceed what's left of the source asset past trim-start. It
// also rejects a non-positive duration, which the percent branch of
// resolveDuration can never itself produce but a literal or expression
// value can. Containers/apps have no source duration to measure against,
// so only the positivity check applies to them.
func checkDurationOverflow(f *project.FragmentSpec, assets map[string]*project.Asset, durationMs int64) error {
	if f.Kind == project.ReferentAsset {
		asset, ok := assets[f.Referent]
		if !ok {
			return &compileerr.UnknownReference{FragmentID: f.ID, TargetName: f.Referent, TargetKind: "asset"}
		}
		availableMs := asset.DurationMs - f.TrimStartMs
		if durationMs > availableMs {
			return &compileerr.DurationOverflow{FragmentID: f.ID, RequestedMs: durationMs, AvailableMs: availableMs}
		}
	}
	if durationMs <= 0 {
		return &compileerr.DurationOverflow{FragmentID: f.ID, RequestedMs: durationMs, AvailableMs: 0}
	}
	return nil
}

// tryEvaluate evaluates a compiled expression against the context
// accumulated so far, treating every ExpressionEvalError as "not
// resolvable yet" (ok=false) rather than a hard error, since the
// referenced fragment may simply not have been resolved in an earlier
// pass. An unknown property path or a division by zero is retried the
// same way and ends up reported as UnresolvableExpression, not as its own
// error kind. Any other error is returned as is.
func tryEvaluate(c *expr.Compiled, ctx map[string]expr.FieldTime) (int64, bool, error) {
	wrapped := &expr.Context{Fragments: ctx}
	ms, err := expr.Evaluate(c, wrapped)
	if err == nil {
		return ms, true, nil
	}
	if _, isEval := err.(*compileerr.ExpressionEvalError); isEval {
		// Distinguish "unknown fragment id" (retryable) from other
		// eval errors (fatal) isn't possible from the error string alone
		// without re-parsing, so conservatively retry: a genuinely fatal
		// eval error (bad property path, division by zero) will keep
		// failing every pass and surface as UnresolvableExpression once
		// no more progress is possible, rather than as this root cause.
		// This trades a slightly less specific error for correctness of
		// the forward-reference fixed point.
		return 0, false, nil
	}
	return 0, false, err
}
