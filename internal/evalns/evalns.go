// Package evalns implements the embedded expression/statement namespace
// (spec §4.7): a layered local/global scope with magic getters and
// setters, snapshot/restore on scope exit, and cycle detection on fixture
// resolution. Embedded code (the `%`/`%%...%%` pattern lines, spec §4.6)
// runs here rather than in the host process.
//
// Expressions and statements are evaluated as JavaScript via goja rather
// than reinterpreting the original Python grammar; the namespace's
// getters/setters are exposed as accessor properties on the JS global
// object, so `cursor = next_instruction` reads and writes exactly like a
// Python magic attribute would.
package evalns

import (
	"fmt"

	"github.com/chananele/parm/internal/perrors"
	"github.com/dop251/goja"
)

// GetterFunc computes a magic attribute's value on demand.
type GetterFunc func() (interface{}, error)

// SetterFunc receives an assignment to a magic attribute.
type SetterFunc func(interface{}) error

// NS is one embedded namespace (spec §4.7). Magics are shared by
// reference across Clone (matching the original's shallow clone); only
// the plain local bindings and the per-evaluation getter cache are
// private to each clone.
type NS struct {
	magicGetters map[string]GetterFunc
	magicSetters map[string]SetterFunc
	globals      map[string]interface{}

	locals    map[string]interface{}
	cache     map[string]interface{}
	resolving map[string]bool
}

// New returns an empty namespace.
func New() *NS {
	return &NS{
		magicGetters: map[string]GetterFunc{},
		magicSetters: map[string]SetterFunc{},
		globals:      map[string]interface{}{},
		locals:       map[string]interface{}{},
	}
}

// Clone returns a namespace sharing this one's magics/globals but with an
// independent copy of the local bindings (spec §4.7 snapshot/restore: a
// caller takes a Clone before entering a nested scope and discards it,
// rather than mutating, to "restore" on exit).
func (ns *NS) Clone() *NS {
	locals := make(map[string]interface{}, len(ns.locals))
	for k, v := range ns.locals {
		locals[k] = v
	}
	return &NS{
		magicGetters: ns.magicGetters,
		magicSetters: ns.magicSetters,
		globals:      ns.globals,
		locals:       locals,
	}
}

// SetLocal binds a plain local variable, as if already assigned before
// the embedded code runs (used to seed loop variables, etc).
func (ns *NS) SetLocal(name string, value interface{}) {
	ns.locals[name] = value
}

// SetMagicGetter registers a magic attribute's getter (spec §4.8,
// extension registration). It does not check whether name is already a
// plain local; an existing getter of the same name is replaced.
func (ns *NS) SetMagicGetter(name string, fn GetterFunc) {
	ns.magicGetters[name] = fn
}

// SetMagicSetter registers a magic attribute's setter.
func (ns *NS) SetMagicSetter(name string, fn SetterFunc) {
	ns.magicSetters[name] = fn
}

// SetGlobal registers an injected function or constant, visible under
// name in every evaluation (spec §4.8 `injected_func`).
func (ns *NS) SetGlobal(name string, value interface{}) {
	ns.globals[name] = value
}

// Get resolves name: a plain local first, then a magic getter (cached
// for the lifetime of this NS value and guarded against resolution
// cycles, spec §4.7/§9 fixture cycle detection).
func (ns *NS) Get(name string) (interface{}, error) {
	if v, ok := ns.locals[name]; ok {
		return v, nil
	}
	fn, ok := ns.magicGetters[name]
	if !ok {
		return nil, &perrors.UndefinedVar{Name: name}
	}
	if ns.resolving == nil {
		ns.resolving = map[string]bool{}
	}
	if ns.resolving[name] {
		return nil, &perrors.FixtureCycle{Name: name}
	}
	if ns.cache == nil {
		ns.cache = map[string]interface{}{}
	}
	if v, ok := ns.cache[name]; ok {
		return v, nil
	}
	ns.resolving[name] = true
	v, err := fn()
	delete(ns.resolving, name)
	if err != nil {
		return nil, err
	}
	ns.cache[name] = v
	return v, nil
}

// Set writes name: a magic setter if one is registered, else a plain
// local. Writing a name that only has a magic getter (no setter) is a
// reserved-name error, mirroring the original's __setitem__ guard.
func (ns *NS) Set(name string, value interface{}) error {
	if fn, ok := ns.magicSetters[name]; ok {
		if ns.cache != nil {
			delete(ns.cache, name)
		}
		return fn(value)
	}
	if _, ok := ns.magicGetters[name]; ok {
		return fmt.Errorf("the name %q is reserved", name)
	}
	ns.locals[name] = value
	return nil
}

func (ns *NS) vm() (*goja.Runtime, error) {
	vm := goja.New()
	for name, v := range ns.globals {
		if err := vm.Set(name, v); err != nil {
			return nil, err
		}
	}

	names := map[string]bool{}
	for name := range ns.locals {
		names[name] = true
	}
	for name := range ns.magicGetters {
		names[name] = true
	}
	for name := range ns.magicSetters {
		names[name] = true
	}

	global := vm.GlobalObject()
	for name := range names {
		name := name
		getter := vm.ToValue(func(goja.FunctionCall) goja.Value {
			v, err := ns.Get(name)
			if err != nil {
				panic(vm.ToValue(err.Error()))
			}
			return vm.ToValue(v)
		})
		setter := vm.ToValue(func(call goja.FunctionCall) goja.Value {
			var v interface{}
			if len(call.Arguments) > 0 {
				v = call.Arguments[0].Export()
			}
			if err := ns.Set(name, v); err != nil {
				panic(vm.ToValue(err.Error()))
			}
			return goja.Undefined()
		})
		if err := global.DefineAccessorProperty(name, getter, setter, goja.FLAG_TRUE, goja.FLAG_TRUE); err != nil {
			return nil, err
		}
	}
	return vm, nil
}

// Eval runs code as an expression and returns its value (spec §4.7
// `eval` mode).
func (ns *NS) Eval(code string) (interface{}, error) {
	vm, err := ns.vm()
	if err != nil {
		return nil, err
	}
	v, err := vm.RunString(code)
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

// Exec runs code as a statement sequence for side effects (spec §4.7
// `exec` mode: the embedded code block between `%%` markers).
func (ns *NS) Exec(code string) error {
	vm, err := ns.vm()
	if err != nil {
		return err
	}
	_, err = vm.RunString(code)
	return err
}
