// Package stream implements the append-only filter-graph DAG and the
// fluent Stream handle used to build it: a Label is a (tag, isAudio) pair,
// a Filter renders to ffmpeg's bracketed filtergraph syntax, and the DAG
// owns every Filter plus the monotonic counter that mints fresh labels.
package stream

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Label identifies one edge of the graph: either a raw input reference
// like "0:v" or a DAG-minted intermediate like "L3", or a reserved
// terminal like "outv"/"outa".
type Label struct {
	Tag     string
	IsAudio bool
}

func (l Label) bracket() string { return "[" + l.Tag + "]" }

// VideoInput returns the stable input-index video label "k:v".
func VideoInput(index int) Label { return Label{Tag: fmt.Sprintf("%d:v", index)} }

// AudioInput returns the stable input-index audio label "k:a".
func AudioInput(index int) Label { return Label{Tag: fmt.Sprintf("%d:a", index), IsAudio: true} }

const (
	outv = "outv"
	outa = "outa"
)

// Filter is one node of the graph: an ordered list of input labels, a
// filter name, ordered parameters, and an ordered list of output labels.
type Filter struct {
	Inputs  []Label
	Name    string
	Params  []Param
	Outputs []Label
}

// Param is one name=value entry of a filter's parameter list. Params are
// rendered in insertion order so graphs are byte-identical across runs.
type Param struct {
	Key   string
	Value string
}

func (f Filter) render() string {
	var b strings.Builder
	for _, in := range f.Inputs {
		b.WriteString(in.bracket())
	}
	b.WriteString(f.Name)
	if len(f.Params) > 0 {
		b.WriteString("=")
		parts := make([]string, len(f.Params))
		for i, p := range f.Params {
			if p.Key == "" {
				parts[i] = p.Value
			} else {
				parts[i] = p.Key + "=" + p.Value
			}
		}
		b.WriteString(strings.Join(parts, ":"))
	}
	for _, out := range f.Outputs {
		b.WriteString(out.bracket())
	}
	return b.String()
}

// DAG owns the ordered sequence of filters produced during one output's
// compile and the monotonic counter used to mint fresh, collision-free
// labels. It is append-only: nothing is ever removed or reordered once
// added, so the render order matches the order filters were appended.
type DAG struct {
	filters []Filter
	counter int
}

// New returns an empty DAG.
func New() *DAG { return &DAG{} }

// freshLabel mints the next unique intermediate label, L0, L1, ....
func (d *DAG) freshLabel(isAudio bool) Label {
	l := Label{Tag: fmt.Sprintf("L%d", d.counter), IsAudio: isAudio}
	d.counter++
	return l
}

// append records a filter in insertion order and returns it unchanged,
// so call sites can chain straight into building the next Stream.
func (d *DAG) append(f Filter) Filter {
	d.filters = append(d.filters, f)
	return f
}

// Render concatenates every appended filter with ';' in insertion order,
// producing the final -filter_complex argument.
func (d *DAG) Render() string {
	parts := make([]string, len(d.filters))
	for i, f := range d.filters {
		parts[i] = f.render()
	}
	return strings.Join(parts, ";")
}

// Labels returns every label that appears anywhere in the DAG (inputs and
// outputs), used by tests asserting label freshness and no collisions
// with the reserved terminals.
func (d *DAG) Labels() []string {
	seen := map[string]bool{}
	for _, f := range d.filters {
		for _, l := range f.Inputs {
			seen[l.Tag] = true
		}
		for _, l := range f.Outputs {
			seen[l.Tag] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
