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

package vm

import (
	"math"
	"math/big"

	"github.com/probechain/slate/lang/diag"
	"github.com/probechain/slate/lang/value"
)

const (
	int32Min = math.MinInt32
	int32Max = math.MaxInt32
)

// fitsInt32 reports whether z is representable as a signed 32-bit integer.
func fitsInt32(z *big.Int) (int32, bool) {
	if !z.IsInt64() {
		return 0, false
	}
	n := z.Int64()
	if n < int32Min || n > int32Max {
		return 0, false
	}
	return int32(n), true
}

// demote collapses a BigInt result back to Int32 when it fits, the inverse
// of the overflow-triggered promotion in/P4. FLOOR_DIV uses it so Int32
// operands yield an Int32 quotient, and NEGATE/INCREMENT/DECREMENT use it
// on BigInt operands.
func demote(z *big.Int) value.Value {
	if n, ok := fitsInt32(z); ok {
		return value.Int32(n)
	}
	return value.BigInt(z)
}

// addInt32 adds two Int32 values, promoting to BigInt on overflow (P4).
func addInt32(a, b int32) value.Value {
	sum := int64(a) + int64(b)
	if sum < int32Min || sum > int32Max {
		return value.BigInt(big.NewInt(sum))
	}
	return value.Int32(int32(sum))
}

func subInt32(a, b int32) value.Value {
	diff := int64(a) - int64(b)
	if diff < int32Min || diff > int32Max {
		return value.BigInt(big.NewInt(diff))
	}
	return value.Int32(int32(diff))
}

func mulInt32(a, b int32) value.Value {
	prod := int64(a) * int64(b)
	if prod < int32Min || prod > int32Max {
		return value.BigInt(big.NewInt(prod))
	}
	return value.Int32(int32(prod))
}

// numericBinOp dispatches ADD/SUBTRACT/MULTIPLY across the promotion ladder:
// Int32 op Int32 uses the overflow-checked integer path; any BigInt
// involvement stays BigInt; any Float involvement promotes to the widest
// Float type present.
func numericBinOp(a, b value.Value, op byte) value.Value {
	widest := value.WidestNumericTag(a.Tag, b.Tag)
	switch widest {
	case value.TagInt32:
		ai, bi := a.AsInt32(), b.AsInt32()
		switch op {
		case '+':
			return addInt32(ai, bi)
		case '-':
			return subInt32(ai, bi)
		case '*':
			return mulInt32(ai, bi)
		}
	case value.TagBigInt:
		ab, bb := value.ToBigInt(a), value.ToBigInt(b)
		z := new(big.Int)
		switch op {
		case '+':
			z.Add(ab, bb)
		case '-':
			z.Sub(ab, bb)
		case '*':
			z.Mul(ab, bb)
		}
		return value.BigInt(z)
	case value.TagFloat32:
		af, bf := value.ToFloat32(a), value.ToFloat32(b)
		switch op {
		case '+':
			return value.Float32(af + bf)
		case '-':
			return value.Float32(af - bf)
		case '*':
			return value.Float32(af * bf)
		}
	case value.TagFloat64:
		af, bf := value.ToFloat64(a), value.ToFloat64(b)
		switch op {
		case '+':
			return value.Float64(af + bf)
		case '-':
			return value.Float64(af - bf)
		case '*':
			return value.Float64(af * bf)
		}
	}
	return value.Null
}

func isZero(v value.Value) bool {
	switch v.Tag {
	case value.TagInt32:
		return v.AsInt32() == 0
	case value.TagBigInt:
		return v.AsBigInt().Sign() == 0
	case value.TagFloat32:
		return v.AsFloat32() == 0
	case value.TagFloat64:
		return v.AsFloat64() == 0
	}
	return false
}

// divide always produces Float: an operand that is already Float32/Float64
// fixes the result width; otherwise (both operands Int32/BigInt) the width
// falls back to vm.cfg.DefaultFloatWidth.
func (vm *VM) divide(a, b value.Value) (value.Value, *diag.Error) {
	if isZero(b) {
		return value.Value{}, vm.withValues(diag.Arithmetic, a, b, "Division by zero")
	}
	if a.Tag == value.TagFloat64 || b.Tag == value.TagFloat64 {
		return value.Float64(value.ToFloat64(a) / value.ToFloat64(b)), nil
	}
	if a.Tag == value.TagFloat32 || b.Tag == value.TagFloat32 {
		return value.Float32(value.ToFloat32(a) / value.ToFloat32(b)), nil
	}
	if vm.cfg.DefaultFloatWidth == "float32" {
		return value.Float32(value.ToFloat32(a) / value.ToFloat32(b)), nil
	}
	return value.Float64(value.ToFloat64(a) / value.ToFloat64(b)), nil
}

func (vm *VM) mod(a, b value.Value) (value.Value, *diag.Error) {
	if isZero(b) {
		return value.Value{}, vm.withValues(diag.Arithmetic, a, b, "Modulo by zero")
	}
	widest := value.WidestNumericTag(a.Tag, b.Tag)
	switch widest {
	case value.TagInt32:
		return value.Int32(a.AsInt32() % b.AsInt32()), nil
	case value.TagBigInt:
		z := new(big.Int).Mod(value.ToBigInt(a), value.ToBigInt(b))
		return value.BigInt(z), nil
	case value.TagFloat32:
		return value.Float32(float32(math.Mod(float64(value.ToFloat32(a)), float64(value.ToFloat32(b))))), nil
	default:
		return value.Float64(math.Mod(value.ToFloat64(a), value.ToFloat64(b))), nil
	}
}

// power always produces Float.
func power(a, b value.Value) value.Value {
	return value.Float64(math.Pow(value.ToFloat64(a), value.ToFloat64(b)))
}

func negate(a value.Value) value.Value {
	switch a.Tag {
	case value.TagInt32:
		n := a.AsInt32()
		if n == int32Min {
			return value.BigInt(new(big.Int).Neg(big.NewInt(int64(n))))
		}
		return value.Int32(-n)
	case value.TagBigInt:
		return demote(new(big.Int).Neg(a.AsBigInt()))
	case value.TagFloat32:
		return value.Float32(-a.AsFloat32())
	case value.TagFloat64:
		return value.Float64(-a.AsFloat64())
	}
	return value.Null
}

func incDec(a value.Value, delta int64) value.Value {
	switch a.Tag {
	case value.TagInt32:
		sum := int64(a.AsInt32()) + delta
		if sum < int32Min || sum > int32Max {
			return value.BigInt(big.NewInt(sum))
		}
		return value.Int32(int32(sum))
	case value.TagBigInt:
		return demote(new(big.Int).Add(a.AsBigInt(), big.NewInt(delta)))
	case value.TagFloat32:
		return value.Float32(a.AsFloat32() + float32(delta))
	case value.TagFloat64:
		return value.Float64(a.AsFloat64() + float64(delta))
	}
	return value.Null
}

// floorDiv rounds toward negative infinity.
func (vm *VM) floorDiv(a, b value.Value) (value.Value, *diag.Error) {
	if isZero(b) {
		return value.Value{}, vm.withValues(diag.Arithmetic, a, b, "Division by zero")
	}
	widest := value.WidestNumericTag(a.Tag, b.Tag)
	switch widest {
	case value.TagInt32, value.TagBigInt:
		ab, bb := value.ToBigInt(a), value.ToBigInt(b)
		q := new(big.Int)
		m := new(big.Int)
		q.DivMod(ab, bb, m)
		// big.Int.DivMod is Euclidean (m always non-negative), which already
		// equals floor division for a positive divisor; for a negative
		// divisor with a nonzero remainder the floor quotient is one less.
		if m.Sign() != 0 && bb.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		}
		return demote(q), nil
	default:
		return value.Float64(math.Floor(value.ToFloat64(a) / value.ToFloat64(b))), nil
	}
}

func toInt32Bits(v value.Value) int32 {
	switch v.Tag {
	case value.TagInt32:
		return v.AsInt32()
	case value.TagBigInt:
		n, _ := fitsInt32(v.AsBigInt())
		return n
	case value.TagFloat32:
		return int32(v.AsFloat32())
	case value.TagFloat64:
		return int32(v.AsFloat64())
	}
	return 0
}
