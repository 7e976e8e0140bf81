// This file contains the dependency injector of the daemon.

package node

import (
	"reflect"
	"sync"

	"golang.org/x/xerrors"
)

// reflectInjector is a dependency injector that uses reflection to find a
// dependency assignable to the requested type.
//
// - implements node.Injector
type reflectInjector struct {
	sync.RWMutex
	mapper map[reflect.Type]interface{}
}

// NewInjector returns an empty injector.
func NewInjector() Injector {
	return &reflectInjector{
		mapper: make(map[reflect.Type]interface{}),
	}
}

// Resolve implements node.Injector. It populates the pointer with the first
// compatible dependency.
func (inj *reflectInjector) Resolve(v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr {
		return xerrors.New("expect a pointer")
	}

	if !rv.Elem().IsValid() {
		return xerrors.Errorf("reflect value '%v' is invalid", rv)
	}

	inj.RLock()
	defer inj.RUnlock()

	for typ, value := range inj.mapper {
		if typ.AssignableTo(rv.Elem().Type()) {
			rv.Elem().Set(reflect.ValueOf(value))
			return nil
		}
	}

	return xerrors.Errorf("couldn't find dependency for '%v'", rv.Elem().Type())
}

// Inject implements node.Injector. A dependency of the same type replaces the
// previous one.
func (inj *reflectInjector) Inject(v interface{}) {
	if v == nil {
		return
	}

	inj.Lock()
	inj.mapper[reflect.TypeOf(v)] = v
	inj.Unlock()
}
