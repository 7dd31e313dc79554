package timeline

import "stsc/project"

// ResolveAll runs the Timeline Compiler's fragment-timing resolution over
// every sequence in proj without building any filter graph, the subset of
// Compile that `stsc validate` exercises (spec.md §6).
func ResolveAll(proj *project.Project) error {
	sharedCtx := proj.NewExpressionContext()
	for _, seq := range proj.Sequences {
		if _, err := resolveSequence(seq, proj.Assets, sharedCtx); err != nil {
			return err
		}
	}
	return nil
}
