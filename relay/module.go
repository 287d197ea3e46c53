// module.go - Modul-Container: benannte Funktionen in stabiler Reihenfolge
// Hauptfunktionen: NewModule, Add, Get, Update, Names, Equal
package relay

import (
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Module is a mapping from function names to function bodies. Iteration
// order is insertion order, so repeated pipeline runs visit functions
// deterministically. Rewrites replace whole function values; function
// bodies are never mutated in place.
type Module struct {
	funcs *orderedmap.OrderedMap[string, *Function]
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{funcs: orderedmap.New[string, *Function]()}
}

// Add registers a function under a global name, replacing any previous
// binding.
func (m *Module) Add(name string, fn *Function) {
	m.funcs.Set(name, fn)
}

// Get returns the function bound to name.
func (m *Module) Get(name string) (*Function, bool) {
	return m.funcs.Get(name)
}

// Update rebinds name to fn. It is the structural-replacement step of a
// legalizer pass: the old function value stays untouched for anyone
// still holding a reference.
func (m *Module) Update(name string, fn *Function) {
	m.funcs.Set(name, fn)
}

// Names returns the function names in insertion order.
func (m *Module) Names() []string {
	names := make([]string, 0, m.funcs.Len())
	for pair := m.funcs.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Len returns the number of functions in the module.
func (m *Module) Len() int {
	return m.funcs.Len()
}

// Equal reports whether two modules bind the same names, in the same
// order, to structurally identical functions.
func (m *Module) Equal(other *Module) bool {
	if m.funcs.Len() != other.funcs.Len() {
		return false
	}
	a, b := m.funcs.Oldest(), other.funcs.Oldest()
	for a != nil && b != nil {
		if a.Key != b.Key || !reflect.DeepEqual(a.Value, b.Value) {
			return false
		}
		a, b = a.Next(), b.Next()
	}
	return a == nil && b == nil
}
