package plan_test

import (
	"context"
	"slices"
	"time"

	"github.com/torosent/crankplan/pkg/plan"
)

type fakeNative struct {
	kind      plan.Kind
	args      plan.Args
	children  []plan.Native
	mutations []plan.Mutation
}

type fakeDelegate struct {
	materialized int
	setChildren  int
	mutated      int
	runs         int
	root         plan.Native
	result       plan.Result
	runErr       error
}

func (d *fakeDelegate) Materialize(kind plan.Kind, args plan.Args) (plan.Native, error) {
	d.materialized++
	return &fakeNative{kind: kind, args: args}, nil
}

func (d *fakeDelegate) SetChildren(h plan.Native, children []plan.Native) (plan.Native, error) {
	d.setChildren++
	n := *h.(*fakeNative)
	n.children = slices.Clone(children)
	return &n, nil
}

func (d *fakeDelegate) Mutate(h plan.Native, m plan.Mutation) (plan.Native, error) {
	d.mutated++
	n := *h.(*fakeNative)
	n.mutations = append(slices.Clone(n.mutations), m)
	return &n, nil
}

func (d *fakeDelegate) Run(_ context.Context, root plan.Native) (plan.Result, error) {
	d.runs++
	d.root = root
	return d.result, d.runErr
}

type fakeResult struct {
	overall  plan.SampleTimes
	labels   map[string]plan.SampleTimes
	order    []string
	duration time.Duration
	reads    int
}

func (r *fakeResult) Overall() plan.SampleTimes {
	r.reads++
	return r.overall
}

func (r *fakeResult) Label(name string) (plan.SampleTimes, bool) {
	t, ok := r.labels[name]
	return t, ok
}

func (r *fakeResult) Labels() []string { return slices.Clone(r.order) }

func (r *fakeResult) Duration() time.Duration { return r.duration }

func nativeOf(e plan.Element) *fakeNative { return e.Native().(*fakeNative) }
