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

package value

import (
	"math/big"
	"testing"
)

func TestEqualValuesHaveEqualHashes(t *testing.T) {
	// P7: equality implies equal hash codes.
	pairs := [][2]Value{
		{String("hello"), String("hello")},
		{Int32(5), Int32(5)},
		{Array([]Value{Int32(1), String("a")}), Array([]Value{Int32(1), String("a")})},
		// Cross-type numeric pairs, mirroring equality_test.go's
		// TestNumericCrossTypeEquality: equal across the promotion ladder,
		// so their hashes must match too.
		{Int32(2), Float64(2)},
		{Int32(2), BigInt(big.NewInt(2))},
		{BigInt(big.NewInt(3)), Float32(3)},
	}
	for _, p := range pairs {
		if !StructuralEqual(p[0], p[1]) {
			t.Fatalf("test setup: %v and %v must be equal", p[0], p[1])
		}
		if Hash(p[0]) != Hash(p[1]) {
			t.Errorf("Hash(%v) != Hash(%v) for structurally equal values", p[0], p[1])
		}
	}
}

func TestObjectHashIgnoresInsertionOrder(t *testing.T) {
	a := NewObjectValue()
	a.Set("x", Int32(1))
	a.Set("y", Int32(2))

	b := NewObjectValue()
	b.Set("y", Int32(2))
	b.Set("x", Int32(1))

	if Hash(Object(a)) != Hash(Object(b)) {
		t.Fatal("object hashing must sort keys, so insertion order must not affect the hash")
	}
}

func TestCyclicObjectHashDoesNotRecurseForever(t *testing.T) {
	ov := NewObjectValue()
	self := Object(ov)
	ov.Set("self", self)
	// Must not stack-overflow: nested object children are short-circuited
	// to pointer identity.
	_ = Hash(self)
}

func TestDifferentValuesLikelyDifferentHashes(t *testing.T) {
	if Hash(String("a")) == Hash(String("b")) {
		t.Fatal("distinct strings hashed to the same value (possible but astronomically unlikely for FNV-1a on short inputs)")
	}
}
