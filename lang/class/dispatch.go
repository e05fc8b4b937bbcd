// Copyright 2024 The Slate Authors
// This file is part of Slate.
//
// Slate is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Slate is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Slate. If not, see <http://www.gnu.org/licenses/>.

// Package class implements property lookup, bound-method wrapping, and
// factory invocation over value.Class and its instances.
package class

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/probechain/slate/lang/value"
)

// cacheSize bounds the method-resolution cache; classes are typically few
// and long-lived, so a modest cache captures the common case of repeated
// GET_PROPERTY calls on the same receiver type inside a loop.
const cacheSize = 512

type cacheKey struct {
	class *value.Class
	name string
}

// resolutionCache memoizes (class, name) -> (Value, found) along the
// parent chain, invalidated whenever a class's InstanceProps/StaticProps
// are mutated (see Invalidate).
var resolutionCache *lru.Cache

func init() {
	c, err := lru.New(cacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which cacheSize never is
	}
	resolutionCache = c
}

// Invalidate drops every cached lookup for class, e.g. after a static or
// instance property is redefined.
func Invalidate(c *value.Class) {
	// golang-lru has no prefix-eviction; the cache is small enough that a
	// full purge on the (rare) redefinition path is cheap and simple.
	resolutionCache.Purge()
	_ = c
}

// Get implements the GET_PROPERTY resolution order of:
// 1. if obj is a Class, search its static properties, else Undefined;
// 2. if obj is an Object, search own properties;
// 3. walk obj's class chain's instance properties;
//
// Native hits are wrapped in a BoundMethod binding the original receiver.
// Misses yield Undefined (never an error), per P6.
func Get(obj value.Value, name string) value.Value {
	if obj.Tag == value.TagClass {
		if v, ok := obj.AsClass().StaticProps[name]; ok {
			return bindIfNative(obj, v, name)
		}
		return value.Undefined
	}
	if obj.Tag == value.TagObject {
		if v, ok := obj.AsObject().Get(name); ok {
			return bindIfNative(obj, v, name)
		}
	}
	if c := obj.Class(); c != nil {
		if v, ok := lookupChain(c, name); ok {
			return bindIfNative(obj, v, name)
		}
	}
	return value.Undefined
}

func lookupChain(c *value.Class, name string) (value.Value, bool) {
	key := cacheKey{class: c, name: name}
	if cached, ok := resolutionCache.Get(key); ok {
		cv := cached.(cachedValue)
		return cv.value, cv.found
	}
	v, found := walkChain(c, name)
	resolutionCache.Add(key, cachedValue{value: v, found: found})
	return v, found
}

type cachedValue struct {
	value value.Value
	found bool
}

func walkChain(c *value.Class, name string) (value.Value, bool) {
	for cur := c; cur != nil; cur = cur.Parent {
		if v, ok := cur.InstanceProps[name]; ok {
			return v, true
		}
	}
	return value.Value{}, false
}

func bindIfNative(receiver, v value.Value, name string) value.Value {
	if fn, fnName, ok := value.AsNative(v); ok {
		return value.BoundMethod(receiver, fn, fnName)
	}
	_ = name
	return v
}

// Set implements SET_PROPERTY: Object only, releasing the prior value and
// rejecting Undefined.
func Set(obj value.Value, name string, v value.Value) error {
	if obj.Tag != value.TagObject {
		return fmt.Errorf("TypeError: cannot set property %q on a %s", name, value.TypeName(obj))
	}
	if v.Tag == value.TagUndefined {
		return fmt.Errorf("TypeError: cannot store undefined in property %q", name)
	}
	value.Retain(v)
	obj.AsObject().Set(name, v)
	return nil
}

// Factory invokes a Class's construction factory,
// resolved op_call design: the factory receives the constructing Class so
// ADT instances can carry the correct constructor identity.
func Factory(vmArg interface{}, c *value.Class, args []value.Value) (value.Value, error) {
	if c.Factory == nil {
		return value.Value{}, fmt.Errorf("TypeError: class %q is not callable", c.Name)
	}
	return c.Factory(vmArg, c, args)
}
