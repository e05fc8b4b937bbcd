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

import "math/big"

// StructuralEqual implements values_equal from: the fallback
// comparison used when neither operand defines a `.equals` method. Numeric
// cross-type equality coerces through the widest type involved (the same
// Int32 -> BigInt -> Float32 -> Float64 ladder used by arithmetic).
// Different tags compare unequal except across numeric variants.
func StructuralEqual(a, b Value) bool {
	if IsNumber(a) && IsNumber(b) {
		return numericEqual(a, b)
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case TagNull, TagUndefined:
		return true
	case TagBoolean:
		return a.b == b.b
	case TagString:
		return a.AsString() == b.AsString()
	case TagArray:
		ae, be := a.AsArray().Elems, b.AsArray().Elems
		if len(ae) != len(be) {
			return false
		}
		for i := range ae {
			if !StructuralEqual(ae[i], be[i]) {
				return false
			}
		}
		return true
	case TagObject:
		ao, bo := a.AsObject(), b.AsObject()
		if ao.Len() != bo.Len() {
			return false
		}
		for _, k := range ao.Keys() {
			av, _ := ao.Get(k)
			bv, ok := bo.Get(k)
			if !ok || !StructuralEqual(av, bv) {
				return false
			}
		}
		return true
	case TagClass:
		return a.AsClass() == b.AsClass()
	case TagClosure:
		return a.AsClosure() == b.AsClosure()
	case TagFunction:
		return a.AsFunction() == b.AsFunction()
	case TagBoundMethod:
		am, bm := a.AsBoundMethod(), b.AsBoundMethod()
		return StructuralEqual(am.Receiver, bm.Receiver) && am.Name == bm.Name
	case TagBuffer:
		ab, bb := a.AsBuffer().Bytes, b.AsBuffer().Bytes
		if len(ab) != len(bb) {
			return false
		}
		for i := range ab {
			if ab[i] != bb[i] {
				return false
			}
		}
		return true
	case TagRange:
		ar, br := a.AsRange(), b.AsRange()
		return ar.Exclusive == br.Exclusive &&
			StructuralEqual(ar.Start, br.Start) &&
			StructuralEqual(ar.End, br.End) &&
			StructuralEqual(ar.Step, br.Step)
	case TagNative:
		_, an, _ := AsNative(a)
		_, bn, _ := AsNative(b)
		return an == bn
	}
	return false
}

func numericEqual(a, b Value) bool {
	widest := widestNumericTag(a.Tag, b.Tag)
	switch widest {
	case TagInt32:
		return a.i32 == b.i32
	case TagBigInt:
		return toBigInt(a).Cmp(toBigInt(b)) == 0
	case TagFloat32:
		return toFloat32(a) == toFloat32(b)
	case TagFloat64:
		return toFloat64(a) == toFloat64(b)
	}
	return false
}

// promotionRank orders the numeric promotion ladder from:
// Int32 -> BigInt -> Float32 -> Float64.
func promotionRank(t Tag) int {
	switch t {
	case TagInt32:
		return 0
	case TagBigInt:
		return 1
	case TagFloat32:
		return 2
	case TagFloat64:
		return 3
	}
	return -1
}

func widestNumericTag(a, b Tag) Tag {
	if promotionRank(a) >= promotionRank(b) {
		return a
	}
	return b
}

func toBigInt(v Value) *big.Int {
	switch v.Tag {
	case TagInt32:
		return big.NewInt(int64(v.i32))
	case TagBigInt:
		return v.AsBigInt()
	}
	return big.NewInt(0)
}

func toFloat32(v Value) float32 {
	switch v.Tag {
	case TagInt32:
		return float32(v.i32)
	case TagBigInt:
		f, _ := new(big.Float).SetInt(v.AsBigInt()).Float32()
		return f
	case TagFloat32:
		return v.f32
	case TagFloat64:
		return float32(v.f64)
	}
	return 0
}

func toFloat64(v Value) float64 {
	switch v.Tag {
	case TagInt32:
		return float64(v.i32)
	case TagBigInt:
		f, _ := new(big.Float).SetInt(v.AsBigInt()).Float64()
		return f
	case TagFloat32:
		return float64(v.f32)
	case TagFloat64:
		return v.f64
	}
	return 0
}

// Exported wrappers so lang/vm's arithmetic opcode handlers can reuse the
// same promotion ladder without duplicating it.

func PromotionRank(t Tag) int { return promotionRank(t) }
func WidestNumericTag(a, b Tag) Tag { return widestNumericTag(a, b) }
func ToBigInt(v Value) *big.Int { return toBigInt(v) }
func ToFloat32(v Value) float32 { return toFloat32(v) }
func ToFloat64(v Value) float64 { return toFloat64(v) }
