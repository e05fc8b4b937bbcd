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

package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/probechain/slate/lang/value"
)

func mathFloat32bits(f float32) uint32      { return math.Float32bits(f) }
func mathFloat64bits(f float64) uint64      { return math.Float64bits(f) }
func mathFloat32frombits(b uint32) float32  { return math.Float32frombits(b) }
func mathFloat64frombits(b uint64) float64  { return math.Float64frombits(b) }

// chunkMagic/chunkVersion identify Slate's on-disk compiled chunk format: a
// function table plus the entry point's index, so CLOSURE constants naming
// function indices resolve the same way whether the program was just
// compiled or loaded back from disk.
const (
	chunkMagic   = "SLTB"
	chunkVersion = 1
)

// constant pool tag bytes, independent of value.Tag's numbering so the
// on-disk format doesn't break if value.Tag gains variants. Only the
// subset of tags a compiler can legally place in a constant pool is
// representable: a constant is always a literal, never a heap container
// built at runtime.
const (
	ctNull byte = iota
	ctUndefined
	ctBoolean
	ctInt32
	ctBigInt
	ctFloat32
	ctFloat64
	ctString
)

// Chunk is an on-disk compiled program: every function registered with a
// VM (in vm.AddFunction order) plus the index of the entry point.
type Chunk struct {
	Functions []*value.Function
	Entry     int
}

// Encode serializes c into Slate's bytecode chunk format. It is the
// inverse of Decode and is exercised by WriteFile and by the format
// round-trip tests.
func Encode(c *Chunk) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, chunkMagic...)
	buf = append(buf, chunkVersion)
	buf = appendUint32(buf, uint32(c.Entry))
	buf = appendUint32(buf, uint32(len(c.Functions)))
	for _, fn := range c.Functions {
		buf = encodeFunction(buf, fn)
	}
	return buf
}

func encodeFunction(buf []byte, fn *value.Function) []byte {
	buf = appendString(buf, fn.Name)
	buf = appendUint32(buf, uint32(fn.Arity))
	buf = appendUint32(buf, uint32(fn.LocalCount))
	buf = appendUint32(buf, uint32(len(fn.ParamNames)))
	for _, p := range fn.ParamNames {
		buf = appendString(buf, p)
	}
	buf = appendUint32(buf, uint32(len(fn.Upvalues)))
	for _, u := range fn.Upvalues {
		if u.IsLocal {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, u.Index)
	}
	buf = appendUint32(buf, uint32(len(fn.Constants)))
	for _, c := range fn.Constants {
		buf = encodeConstant(buf, c)
	}
	buf = appendUint32(buf, uint32(len(fn.Code)))
	buf = append(buf, fn.Code...)
	if fn.Debug == nil {
		buf = appendUint32(buf, 0)
	} else {
		buf = appendUint32(buf, uint32(len(fn.Debug.Entries)))
		for _, e := range fn.Debug.Entries {
			buf = appendUint32(buf, uint32(e.ByteOffset))
			buf = appendUint32(buf, uint32(e.Line))
			buf = appendUint32(buf, uint32(e.Column))
		}
	}
	return buf
}

func encodeConstant(buf []byte, v value.Value) []byte {
	switch v.Tag {
	case value.TagNull:
		return append(buf, ctNull)
	case value.TagUndefined:
		return append(buf, ctUndefined)
	case value.TagBoolean:
		buf = append(buf, ctBoolean)
		if value.IsTruthy(v) {
			return append(buf, 1)
		}
		return append(buf, 0)
	case value.TagInt32:
		buf = append(buf, ctInt32)
		return appendUint32(buf, uint32(v.AsInt32()))
	case value.TagBigInt:
		buf = append(buf, ctBigInt)
		return appendBytes(buf, v.AsBigInt().Bytes(), v.AsBigInt().Sign() < 0)
	case value.TagFloat32:
		buf = append(buf, ctFloat32)
		return appendUint32(buf, mathFloat32bits(v.AsFloat32()))
	case value.TagFloat64:
		buf = append(buf, ctFloat64)
		return appendUint64(buf, mathFloat64bits(v.AsFloat64()))
	case value.TagString:
		buf = append(buf, ctString)
		return appendString(buf, v.AsString())
	default:
		panic(fmt.Sprintf("bytecode: %s is not representable in a constant pool", v.Tag))
	}
}

// Decode parses a Slate bytecode chunk, the inverse of Encode.
func Decode(data []byte) (*Chunk, error) {
	r := &reader{data: data}
	if err := r.expectMagic(); err != nil {
		return nil, err
	}
	version := r.u8()
	if version != chunkVersion {
		return nil, fmt.Errorf("bytecode: unsupported chunk version %d", version)
	}
	entry := int(r.u32())
	n := int(r.u32())
	fns := make([]*value.Function, n)
	for i := 0; i < n; i++ {
		fn, err := r.function()
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	if r.err != nil {
		return nil, r.err
	}
	return &Chunk{Functions: fns, Entry: entry}, nil
}

// ReadFile memory-maps path and decodes it as a Slate bytecode chunk,
// avoiding a full read of potentially large compiled programs into a
// freshly allocated []byte. The mapping is closed before ReadFile returns;
// Decode copies out every value it keeps (strings, big.Int, code slices),
// so the returned Chunk does not depend on the mapping's lifetime.
func ReadFile(path string) (*Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("bytecode: %s is empty", path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()

	data := make([]byte, len(m))
	copy(data, m)
	return Decode(data)
}

// WriteFile writes c's encoded form to path.
func WriteFile(path string, c *Chunk) error {
	return os.WriteFile(path, Encode(c), 0o644)
}

// ---- wire helpers -----------------------------------------------------

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendBytes(buf []byte, b []byte, negative bool) []byte {
	buf = appendUint32(buf, uint32(len(b)))
	if negative {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return append(buf, b...)
}

type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.fail("bytecode: truncated chunk at offset %d", r.pos)
		return false
	}
	return true
}

func (r *reader) expectMagic() error {
	if !r.need(len(chunkMagic)) {
		return r.err
	}
	if string(r.data[r.pos:r.pos+len(chunkMagic)]) != chunkMagic {
		return fmt.Errorf("bytecode: not a Slate chunk")
	}
	r.pos += len(chunkMagic)
	return nil
}

func (r *reader) u8() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v
}

func (r *reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out
}

func (r *reader) str() string {
	n := int(r.u32())
	return string(r.bytes(n))
}

func (r *reader) function() (*value.Function, error) {
	fn := value.NewFunction()
	fn.Name = r.str()
	fn.Arity = int(r.u32())
	fn.LocalCount = int(r.u32())
	nParams := int(r.u32())
	fn.ParamNames = make([]string, nParams)
	for i := range fn.ParamNames {
		fn.ParamNames[i] = r.str()
	}
	nUp := int(r.u32())
	fn.Upvalues = make([]value.UpvalueDesc, nUp)
	for i := range fn.Upvalues {
		isLocal := r.u8() != 0
		idx := r.u8()
		fn.Upvalues[i] = value.UpvalueDesc{IsLocal: isLocal, Index: idx}
	}
	nConst := int(r.u32())
	fn.Constants = make([]value.Value, nConst)
	for i := range fn.Constants {
		v, err := r.constant()
		if err != nil {
			return nil, err
		}
		value.Retain(v)
		fn.Constants[i] = v
	}
	codeLen := int(r.u32())
	fn.Code = r.bytes(codeLen)
	nDebug := int(r.u32())
	if nDebug > 0 {
		fn.Debug = &value.DebugTable{Entries: make([]value.DebugEntry, nDebug)}
		for i := range fn.Debug.Entries {
			fn.Debug.Entries[i] = value.DebugEntry{
				ByteOffset: int(r.u32()),
				Line:       int(r.u32()),
				Column:     int(r.u32()),
			}
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return fn, nil
}

func (r *reader) constant() (value.Value, error) {
	tag := r.u8()
	switch tag {
	case ctNull:
		return value.Null, nil
	case ctUndefined:
		return value.Undefined, nil
	case ctBoolean:
		return value.Bool(r.u8() != 0), nil
	case ctInt32:
		return value.Int32(int32(r.u32())), nil
	case ctBigInt:
		n := int(r.u32())
		negative := r.u8() != 0
		b := r.bytes(n)
		z := new(big.Int).SetBytes(b)
		if negative {
			z.Neg(z)
		}
		return value.BigInt(z), nil
	case ctFloat32:
		return value.Float32(mathFloat32frombits(r.u32())), nil
	case ctFloat64:
		return value.Float64(mathFloat64frombits(r.u64())), nil
	case ctString:
		return value.String(r.str()), nil
	default:
		return value.Value{}, fmt.Errorf("bytecode: unknown constant tag %d", tag)
	}
}
