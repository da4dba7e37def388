package host

// View is a rendered native element.
type View struct {
	Tag      string
	Key      string
	Instance string // id of the mounted instance, stable between renders
	Props    Props
	Children []*View
}

// Walk visits view and its descendants depth first. Returning false from fn
// skips children of the visited view.
func (v *View) Walk(fn func(v *View, depth int) bool) {
	v.walk(fn, 0)
}

func (v *View) walk(fn func(v *View, depth int) bool, depth int) {
	if v == nil || !fn(v, depth) {
		return
	}
	for _, c := range v.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns number of views in the tree.
func (v *View) Count() int {
	n := 0
	v.Walk(func(*View, int) bool {
		n++
		return true
	})
	return n
}
