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
	"math"
	"reflect"
)

func mathFloat32bits(f float32) uint32 { return math.Float32bits(f) }
func mathFloat64bits(f float64) uint64 { return math.Float64bits(f) }

// ptrOf returns the identity pointer of a heap payload, used to break
// cycles during hashing of nested Object/Array graphs.
func ptrOf(p interface{}) uintptr {
	return reflect.ValueOf(p).Pointer()
}
