package xmlrpc

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownMethod is returned by BasicDispatcher for a method name without
// registered Method and without fallback.
var ErrUnknownMethod = errors.New("Unknown method")

// Dispatcher routes a received method call. The arguments are always an
// array.
type Dispatcher interface {
	Dispatch(methodName string, args *Value) (*Value, error)
}

// A Method is called by a Dispatcher with the arguments as array.
type Method interface {
	Call(args *Value) (*Value, error)
}

// MethodFunc adapts an ordinary function to a Method.
type MethodFunc func(args *Value) (*Value, error)

// Call implements Method.
func (m MethodFunc) Call(args *Value) (*Value, error) {
	return m(args)
}

// BasicDispatcher is a registry of Methods by name. The zero value is ready
// to use. Methods can be registered while calls are dispatched.
type BasicDispatcher struct {
	mutex    sync.RWMutex
	methods  map[string]Method
	fallback func(methodName string, args *Value) (*Value, error)
}

// Handle registers m under name. A previous registration is replaced.
func (d *BasicDispatcher) Handle(name string, m Method) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.methods == nil {
		d.methods = make(map[string]Method)
	}
	d.methods[name] = m
}

// HandleFunc registers f under name.
func (d *BasicDispatcher) HandleFunc(name string, f func(args *Value) (*Value, error)) {
	d.Handle(name, MethodFunc(f))
}

// HandleUnknownFunc sets the fallback for names without registered Method.
func (d *BasicDispatcher) HandleUnknownFunc(f func(methodName string, args *Value) (*Value, error)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.fallback = f
}

// Names returns the registered method names in ascending order.
func (d *BasicDispatcher) Names() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	names := make([]string, 0, len(d.methods))
	for n := range d.methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Dispatch implements Dispatcher.
func (d *BasicDispatcher) Dispatch(methodName string, args *Value) (*Value, error) {
	d.mutex.RLock()
	m, ok := d.methods[methodName]
	fallback := d.fallback
	d.mutex.RUnlock()

	switch {
	case ok:
		return m.Call(args)
	case fallback != nil:
		return fallback(methodName, args)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, methodName)
}
