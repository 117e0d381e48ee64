package plan

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Element is any node of a test plan tree.
type Element interface {
	ID() ID
	Kind() Kind
	// Native returns the delegate handle the node currently wraps.
	Native() Native
	// Children attaches children in order. The call is atomic: either every candidate
	// is attached or none is.
	Children(children ...Element) error
	// Elements returns a copy of the attached children.
	Elements() []Element
}

// node is the state shared by every element kind.
type node struct {
	b        *Builder
	id       ID
	kind     Kind
	native   Native
	children []Element
	// gen counts native handle refreshes caused by Children or resolve.
	gen uint64
	// childGens holds each child's gen as of the last SetChildren call.
	childGens []uint64
}

// tracked is implemented by every builder-made element.
type tracked interface {
	base() *node
}

func (n *node) base() *node { return n }

func generation(e Element) uint64 {
	if t, ok := e.(tracked); ok {
		return t.base().gen
	}
	return 0
}

func isNil(e Element) bool {
	if e == nil {
		return true
	}
	v := reflect.ValueOf(e)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

// contains reports whether target is e or sits anywhere below it.
func contains(e Element, target *node) bool {
	t, ok := e.(tracked)
	if !ok {
		return false
	}
	if t.base() == target {
		return true
	}
	for _, c := range t.base().children {
		if contains(c, target) {
			return true
		}
	}
	return false
}

func (n *node) ID() ID { return n.id }

func (n *node) Kind() Kind { return n.kind }

func (n *node) Native() Native { return n.native }

func (n *node) Elements() []Element { return slices.Clone(n.children) }

func (n *node) Children(children ...Element) error {
	if n.kind.Terminal() {
		return &CompositionError{Container: n.kind, Index: -1}
	}
	required := n.kind.Accepts()
	for i, child := range children {
		if isNil(child) {
			return &CompositionError{Container: n.kind, Required: required, Child: -1, Index: i}
		}
		if !child.Kind().Capabilities().Has(required) {
			return &CompositionError{Container: n.kind, Required: required, Child: child.Kind(), Index: i}
		}
		if contains(child, n) {
			return &CompositionError{Container: n.kind, Required: required, Child: child.Kind(), Index: i, Cycle: true}
		}
	}
	if len(children) == 0 {
		return nil
	}

	all := make([]Element, 0, len(n.children)+len(children))
	all = append(all, n.children...)
	all = append(all, children...)
	if err := n.attach(all); err != nil {
		return err
	}
	n.b.logger.Debug("children attached",
		zap.Stringer("kind", n.kind),
		zap.Stringer("id", n.id),
		zap.Int("added", len(children)),
		zap.Int("total", len(all)),
	)
	return nil
}

// attach hands the full ordered child set to the delegate and records the
// generation of every child it was built from.
func (n *node) attach(all []Element) error {
	natives := make([]Native, len(all))
	gens := make([]uint64, len(all))
	for i, child := range all {
		natives[i] = child.Native()
		gens[i] = generation(child)
	}
	h, err := n.b.delegate.SetChildren(n.native, natives)
	if err != nil {
		return fmt.Errorf("attach children to %s: %w", n.kind, err)
	}
	n.children = all
	n.childGens = gens
	n.native = h
	n.gen++
	return nil
}

// resolve refreshes the handles below n, bottom-up, so that children attached
// to an already nested element reach the delegate. Subtrees that did not change
// since their last attachment cost no delegate calls.
func (n *node) resolve() error {
	stale := false
	for i, child := range n.children {
		if t, ok := child.(tracked); ok {
			if err := t.base().resolve(); err != nil {
				return err
			}
		}
		if generation(child) != n.childGens[i] {
			stale = true
		}
	}
	if !stale {
		return nil
	}
	return n.attach(n.children)
}

// mutate asks the delegate for a refreshed handle and returns a copy of n carrying it.
// n itself is left untouched.
func (n *node) mutate(m Mutation) (node, error) {
	h, err := n.b.delegate.Mutate(n.native, m)
	if err != nil {
		return node{}, fmt.Errorf("%s: %w", n.kind, err)
	}
	cp := *n
	cp.children = slices.Clone(n.children)
	cp.childGens = slices.Clone(n.childGens)
	cp.native = h
	return cp, nil
}

func (b *Builder) newNode(kind Kind, args Args, children []Element) (node, error) {
	h, err := b.delegate.Materialize(kind, args)
	if err != nil {
		return node{}, fmt.Errorf("materialize %s: %w", kind, err)
	}
	n := node{b: b, id: ulid.Make(), kind: kind, native: h}
	if len(children) > 0 {
		if err := n.Children(children...); err != nil {
			return node{}, err
		}
	}
	return n, nil
}
