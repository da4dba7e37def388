package host

import (
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ncss/scope"
)

// Unmounter is implemented by instances which need to know when they are
// removed from the tree.
type Unmounter interface {
	Unmount()
}

// mounted is a live node of the rendered tree.
type mounted struct {
	id       string
	typ      Component
	key      string
	inst     Instance
	child    *mounted   // composite: rendered element
	children []*mounted // native: child elements
	view     *View
}

// Renderer keeps mounted tree between renders. It is not safe for concurrent
// use, each render runs to completion synchronously.
type Renderer struct {
	log   *zap.Logger
	root  *mounted
	live  int
	count int
}

// NewRenderer creates renderer.
func NewRenderer(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log.Named("renderer")}
}

// Render reconciles el against previously rendered tree and returns root
// view, nil when the tree renders nothing. Instances whose element type and
// key did not change are kept, everything else is unmounted.
func (r *Renderer) Render(el Element) *View {
	r.count++
	r.root = r.reconcile(r.root, el, scope.Context{})
	r.log.Debug("Tree rendered", zap.Int("pass", r.count), zap.Int("instances", r.live))
	if r.root == nil {
		return nil
	}
	return r.root.view
}

// Mounted returns number of live instances.
func (r *Renderer) Mounted() int {
	return r.live
}

// Passes returns number of completed Render calls.
func (r *Renderer) Passes() int {
	return r.count
}

// Reset unmounts the whole tree.
func (r *Renderer) Reset() {
	r.unmount(r.root)
	r.root = nil
}

func (r *Renderer) reconcile(prev *mounted, el Element, ctx scope.Context) *mounted {
	if el.IsZero() {
		r.unmount(prev)
		return nil
	}

	m := prev
	if m == nil || m.typ != el.Type || m.key != el.Key {
		r.unmount(prev)
		m = r.mount(el)
	}

	if native, ok := el.Type.(*Native); ok {
		m.children = r.reconcileChildren(m.children, el.Children, ctx)
		view := &View{
			Tag:      native.Tag(),
			Key:      el.Key,
			Instance: m.id,
			Props:    el.Props,
			Children: make([]*View, 0, len(m.children)),
		}
		for _, c := range m.children {
			if c.view != nil {
				view.Children = append(view.Children, c.view)
			}
		}
		m.view = view
		return m
	}

	out, childCtx := m.inst.Render(ctx, el.Props, el.Children)
	m.child = r.reconcile(m.child, out, childCtx)
	m.view = nil
	if m.child != nil {
		m.view = m.child.view
	}
	return m
}

// identity of a child among its siblings, unkeyed children are matched by
// position.
func identity(el Element, i int) string {
	if el.Key != "" {
		return el.Key
	}
	return "#" + strconv.Itoa(i)
}

func (r *Renderer) reconcileChildren(prev []*mounted, els []Element, ctx scope.Context) []*mounted {
	type slot struct {
		typ Component
		id  string
	}

	// siblings sharing type and key are matched in order of appearance
	old := make(map[slot][]*mounted, len(prev))
	for i, m := range prev {
		if m == nil {
			continue
		}
		id := m.key
		if id == "" {
			id = "#" + strconv.Itoa(i)
		}
		s := slot{m.typ, id}
		if len(old[s]) > 0 {
			r.log.Warn("Duplicate key among siblings", zap.String("component", m.typ.Name()), zap.String("key", m.key))
		}
		old[s] = append(old[s], m)
	}

	next := make([]*mounted, len(els))
	for i, el := range els {
		var m *mounted
		if !el.IsZero() {
			s := slot{el.Type, identity(el, i)}
			if same := old[s]; len(same) > 0 {
				m, old[s] = same[0], same[1:]
			}
		}
		next[i] = r.reconcile(m, el, ctx)
	}
	for _, same := range old {
		for _, m := range same {
			r.unmount(m)
		}
	}
	return next
}

func (r *Renderer) mount(el Element) *mounted {
	m := &mounted{
		id:   uuid.NewString(),
		typ:  el.Type,
		key:  el.Key,
		inst: el.Type.Mount(),
	}
	r.live++
	r.log.Debug("Mounted", zap.String("component", el.Type.Name()), zap.String("key", el.Key), zap.String("id", m.id))
	return m
}

func (r *Renderer) unmount(m *mounted) {
	if m == nil {
		return
	}
	r.unmount(m.child)
	for _, c := range m.children {
		r.unmount(c)
	}
	if u, ok := m.inst.(Unmounter); ok {
		u.Unmount()
	}
	r.live--
	r.log.Debug("Unmounted", zap.String("component", m.typ.Name()), zap.String("id", m.id))
}
