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
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/big"
	"sort"
)

// Hash implements hashing rule: FNV-1a over a canonical byte
// encoding. Object hashing sorts keys lexicographically, folds each
// (key-hash, value-hash) pair into the accumulator, and short-circuits
// object-valued children to pointer identity to avoid cycles.
//
// hash/fnv is the standard library's FNV-1a implementation; the spec names
// the algorithm explicitly and no pack dependency supplies a drop-in
// replacement, so the stdlib package is the correct, idiomatic choice here
// (see DESIGN.md).
func Hash(v Value) uint64 {
	h := fnv.New64a()
	hashInto(h, v, false)
	return h.Sum64()
}

func hashInto(h hasher, v Value, nested bool) {
	if IsNumber(v) {
		// Numeric tags hash through the same Int32 -> BigInt -> Float32 ->
		// Float64 promotion ladder numericEqual uses for StructuralEqual,
		// so P7 ("equality implies equal hash codes") holds across tags:
		// Hash(Int32(2)) == Hash(BigInt(2)) == Hash(Float64(2)).
		hashNumeric(h, v)
		return
	}
	h.Write([]byte{byte(v.Tag)})
	switch v.Tag {
	case TagNull, TagUndefined:
		// tag byte alone distinguishes these
	case TagBoolean:
		if v.b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case TagString:
		h.Write([]byte(v.AsString()))
	case TagArray:
		for _, e := range v.AsArray().Elems {
			hashInto(h, e, nested)
		}
	case TagObject:
		if nested {
			// Short-circuit nested object children to pointer identity to
			// avoid infinite recursion on cyclic graphs.
			var buf [8]byte
			binary.LittleEndian.PutUint64(buf[:], uint64(objPtr(v)))
			h.Write(buf[:])
			return
		}
		obj := v.AsObject()
		keys := append([]string(nil), obj.Keys()...)
		sort.Strings(keys)
		for _, k := range keys {
			kh := fnvString(k)
			val, _ := obj.Get(k)
			vh := subHash(val)
			var buf [16]byte
			binary.LittleEndian.PutUint64(buf[0:8], kh)
			binary.LittleEndian.PutUint64(buf[8:16], vh)
			h.Write(buf[:])
		}
	case TagBuffer:
		h.Write(v.AsBuffer().Bytes)
	default:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(objPtr(v)))
		h.Write(buf[:])
	}
}

type hasher interface {
	Write(p []byte) (int, error)
}

// numHashInt/numHashFloat are the markers hashNumeric writes in place of a
// Tag byte, so the encoding is keyed by the canonical numeric form rather
// than by which of Int32/BigInt/Float32/Float64 produced it.
const (
	numHashInt byte = 0xf0
	numHashFloat byte = 0xf1
)

// hashNumeric canonicalizes a numeric Value before hashing it: integral
// values (Int32, BigInt, and any Float that holds a whole number exactly)
// hash as their big.Int form; everything else hashes as its float64 bit
// pattern, since widening Float32 to float64 is always exact.
func hashNumeric(h hasher, v Value) {
	switch v.Tag {
	case TagInt32:
		hashBigIntValue(h, big.NewInt(int64(v.i32)))
	case TagBigInt:
		hashBigIntValue(h, v.AsBigInt())
	case TagFloat32:
		hashFloatValue(h, float64(v.f32))
	case TagFloat64:
		hashFloatValue(h, v.f64)
	}
}

func hashFloatValue(h hasher, f float64) {
	if z, ok := exactInt(f); ok {
		hashBigIntValue(h, z)
		return
	}
	h.Write([]byte{numHashFloat})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], mathFloat64bits(f))
	h.Write(buf[:])
}

func hashBigIntValue(h hasher, z *big.Int) {
	h.Write([]byte{numHashInt})
	if z.Sign() < 0 {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write(z.Bytes())
}

// exactInt reports whether f holds a whole number representable exactly as
// a big.Int, so e.g. Float64(2.0) canonicalizes the same way as Int32(2)
// while Float64(2.5) does not.
func exactInt(f float64) (*big.Int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, false
	}
	z, acc := new(big.Float).SetFloat64(f).Int(nil)
	if acc != big.Exact {
		return nil, false
	}
	return z, true
}

func fnvString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func subHash(v Value) uint64 {
	h := fnv.New64a()
	hashInto(h, v, true)
	return h.Sum64()
}

func objPtr(v Value) uintptr {
	switch o := v.obj.(type) {
	case *ObjectValue:
		return ptrOf(o)
	case *ArrayValue:
		return ptrOf(o)
	default:
		return 0
	}
}
