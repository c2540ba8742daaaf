// Copyright 2020 lesismal. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/lesismal/nbpipe/mempool"
)

// Debug enables the consistency assertion on every Packet mutation.
var Debug = false

// Packet is an unbounded byte sequence made of a queue of owned Buffers.
//
// Moving bytes between Packets with WritePacket, Steal or ReadPacket moves
// whole Buffers and does not copy them. Clone is the only operation that
// duplicates bytes. A Packet is not safe for concurrent use.
type Packet struct {
	buffers   []*Buffer
	available int
	allocator mempool.Allocator
}

// New creates an empty Packet whose Buffers come from mempool.DefaultMemPool.
func New() *Packet {
	return &Packet{}
}

// NewWith creates an empty Packet whose Buffers come from allocator.
func NewWith(allocator mempool.Allocator) *Packet {
	return &Packet{allocator: allocator}
}

// FromBytes creates a Packet owning b, b must not be modified afterwards.
func FromBytes(b []byte) *Packet {
	p := New()
	p.WriteByteArray(b)
	return p
}

// FromString creates a Packet holding the UTF-8 bytes of s.
func FromString(s string) *Packet {
	return FromBytes([]byte(s))
}

// AvailableForRead returns the number of readable bytes.
func (p *Packet) AvailableForRead() int {
	return p.available
}

// IsEmpty .
func (p *Packet) IsEmpty() bool {
	return p.available == 0
}

// Validate checks that the cached size matches the Buffers.
func (p *Packet) Validate() error {
	total := 0
	for _, b := range p.buffers {
		total += b.AvailableForRead()
	}
	if total != p.available {
		return fmt.Errorf("packet: inconsistent size: cached %d, buffers %d", p.available, total)
	}
	return nil
}

func (p *Packet) assert() {
	if Debug {
		if err := p.Validate(); err != nil {
			panic(err)
		}
	}
}

func (p *Packet) checkCanRead(n int) error {
	if n < 0 {
		return fmt.Errorf("packet: negative read size %d", n)
	}
	if p.available < n {
		return fmt.Errorf("%w: available %d, required %d", ErrEndOfData, p.available, n)
	}
	return nil
}

func (p *Packet) alloc() mempool.Allocator {
	if p.allocator == nil {
		return mempool.DefaultMemPool
	}
	return p.allocator
}

func (p *Packet) first() *Buffer {
	return p.buffers[0]
}

func (p *Packet) popFirst() *Buffer {
	b := p.buffers[0]
	p.buffers[0] = nil
	p.buffers = p.buffers[1:]
	if len(p.buffers) == 0 {
		p.buffers = nil
	}
	return b
}

func (p *Packet) dropFirstIfEmpty() {
	if len(p.buffers) > 0 && p.first().IsEmpty() {
		p.popFirst().Close()
	}
}

// tail returns the last Buffer if it can take at least one more byte.
func (p *Packet) tail() *Buffer {
	if n := len(p.buffers); n > 0 {
		if b := p.buffers[n-1]; b.AvailableForWrite() > 0 {
			return b
		}
	}
	return nil
}

func (p *Packet) grow() *Buffer {
	b := NewBufferWith(p.alloc(), BufferSize)
	p.buffers = append(p.buffers, b)
	return b
}

// readFull moves exactly len(dst) bytes into dst, availability must be checked first.
func (p *Packet) readFull(dst []byte) {
	for len(dst) > 0 {
		n := p.first().Read(dst)
		dst = dst[n:]
		p.available -= n
		p.dropFirstIfEmpty()
	}
}

// Peek returns the first readable chunk without consuming it.
func (p *Packet) Peek() []byte {
	if len(p.buffers) == 0 {
		return nil
	}
	return p.first().Bytes()
}

// PeekBuffer returns the first Buffer without removing it.
func (p *Packet) PeekBuffer() *Buffer {
	if len(p.buffers) == 0 {
		return nil
	}
	return p.first()
}

// ReadBuffer removes and returns the first Buffer, ownership goes to the caller.
// It returns nil if the Packet is empty.
func (p *Packet) ReadBuffer() *Buffer {
	if len(p.buffers) == 0 {
		return nil
	}
	b := p.popFirst()
	p.available -= b.AvailableForRead()
	p.assert()
	return b
}

// ReadByte implements io.ByteReader.
func (p *Packet) ReadByte() (byte, error) {
	if err := p.checkCanRead(1); err != nil {
		return 0, err
	}
	var tmp [1]byte
	p.readFull(tmp[:])
	p.assert()
	return tmp[0], nil
}

// ReadInt16 reads a big-endian int16.
func (p *Packet) ReadInt16() (int16, error) {
	if err := p.checkCanRead(2); err != nil {
		return 0, err
	}
	var tmp [2]byte
	p.readFull(tmp[:])
	p.assert()
	return int16(binary.BigEndian.Uint16(tmp[:])), nil
}

// ReadInt32 reads a big-endian int32.
func (p *Packet) ReadInt32() (int32, error) {
	if err := p.checkCanRead(4); err != nil {
		return 0, err
	}
	var tmp [4]byte
	p.readFull(tmp[:])
	p.assert()
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

// ReadInt64 reads a big-endian int64.
func (p *Packet) ReadInt64() (int64, error) {
	if err := p.checkCanRead(8); err != nil {
		return 0, err
	}
	var tmp [8]byte
	p.readFull(tmp[:])
	p.assert()
	return int64(binary.BigEndian.Uint64(tmp[:])), nil
}

// ReadFloat32 reads a big-endian IEEE 754 float32.
func (p *Packet) ReadFloat32() (float32, error) {
	v, err := p.ReadInt32()
	return math.Float32frombits(uint32(v)), err
}

// ReadFloat64 reads a big-endian IEEE 754 float64.
func (p *Packet) ReadFloat64() (float64, error) {
	v, err := p.ReadInt64()
	return math.Float64frombits(uint64(v)), err
}

// ReadByteArray reads exactly n bytes into a new slice.
func (p *Packet) ReadByteArray(n int) ([]byte, error) {
	if err := p.checkCanRead(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	p.readFull(b)
	p.assert()
	return b, nil
}

// Read implements io.Reader.
func (p *Packet) Read(b []byte) (int, error) {
	if p.available == 0 {
		if len(b) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := len(b)
	if n > p.available {
		n = p.available
	}
	p.readFull(b[:n])
	p.assert()
	return n, nil
}

// ReadString drains the Packet as UTF-8 text.
func (p *Packet) ReadString() string {
	if p.available == 0 {
		return ""
	}
	if len(p.buffers) == 1 {
		b := p.popFirst()
		s := string(b.Bytes())
		p.available = 0
		b.Close()
		return s
	}
	return string(p.ToByteArray())
}

// ToByteArray drains the Packet into one slice.
func (p *Packet) ToByteArray() []byte {
	b := make([]byte, p.available)
	p.readFull(b)
	p.assert()
	return b
}

// ReadPacket splits off a new Packet holding exactly the next n bytes.
// Whole Buffers are moved, only the Buffer on the split point is copied.
func (p *Packet) ReadPacket(n int) (*Packet, error) {
	if err := p.checkCanRead(n); err != nil {
		return nil, err
	}
	if n == p.available {
		return p.Steal(), nil
	}

	result := NewWith(p.allocator)
	remaining := n
	for len(p.buffers) > 0 && remaining >= p.first().AvailableForRead() {
		b := p.popFirst()
		remaining -= b.AvailableForRead()
		result.WriteBuffer(b)
	}
	if remaining > 0 {
		result.WriteBuffer(p.first().Split(remaining))
	}
	p.available -= n
	p.assert()
	return result, nil
}

// Discard skips up to n bytes and returns the number skipped.
func (p *Packet) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	if n >= p.available {
		result := p.available
		p.Close()
		return result
	}

	remaining := n
	for remaining > 0 {
		b := p.first()
		if b.AvailableForRead() > remaining {
			b.Discard(remaining)
			remaining = 0
			break
		}
		remaining -= b.AvailableForRead()
		p.popFirst().Close()
	}
	p.available -= n
	p.assert()
	return n
}

// DiscardExact skips exactly n bytes or fails without consuming anything.
func (p *Packet) DiscardExact(n int) error {
	if err := p.checkCanRead(n); err != nil {
		return err
	}
	p.Discard(n)
	return nil
}

// IndexByte returns the offset of the first c, or -1.
func (p *Packet) IndexByte(c byte) int {
	base := 0
	for _, b := range p.buffers {
		data := b.Bytes()
		if i := bytes.IndexByte(data, c); i >= 0 {
			return base + i
		}
		base += len(data)
	}
	return -1
}

// IndexOf returns the offset of the first occurrence of needle, or -1.
// Matches spanning several Buffers are found.
func (p *Packet) IndexOf(needle []byte) int {
	if len(needle) == 0 {
		return 0
	}
	base := 0
	for i, b := range p.buffers {
		data := b.Bytes()
		for off := 0; off < len(data); off++ {
			j := bytes.IndexByte(data[off:], needle[0])
			if j < 0 {
				break
			}
			off += j
			if p.matchAt(i, off, needle) {
				return base + off
			}
		}
		base += len(data)
	}
	return -1
}

// HasPrefix reports whether the readable bytes start with prefix.
func (p *Packet) HasPrefix(prefix []byte) bool {
	return p.available >= len(prefix) && p.matchAt(0, 0, prefix)
}

func (p *Packet) matchAt(i, off int, needle []byte) bool {
	for len(needle) > 0 {
		if i >= len(p.buffers) {
			return false
		}
		data := p.buffers[i].Bytes()[off:]
		n := len(data)
		if n > len(needle) {
			n = len(needle)
		}
		if !bytes.Equal(data[:n], needle[:n]) {
			return false
		}
		needle = needle[n:]
		i++
		off = 0
	}
	return true
}

// WriteBuffer appends b, ownership of b goes to the Packet.
func (p *Packet) WriteBuffer(b *Buffer) {
	if b == nil {
		return
	}
	if b.IsEmpty() {
		b.Close()
		return
	}
	p.buffers = append(p.buffers, b)
	p.available += b.AvailableForRead()
	p.assert()
}

// WritePacket moves all Buffers of other to the end of p, other becomes empty.
func (p *Packet) WritePacket(other *Packet) {
	if other == nil || other == p {
		return
	}
	p.buffers = append(p.buffers, other.buffers...)
	p.available += other.available
	for i := range other.buffers {
		other.buffers[i] = nil
	}
	other.buffers = nil
	other.available = 0
	p.assert()
}

// Write implements io.Writer, p is copied.
func (p *Packet) Write(b []byte) (int, error) {
	total := len(b)
	for len(b) > 0 {
		t := p.tail()
		if t == nil {
			t = p.grow()
		}
		n := t.Write(b)
		b = b[n:]
		p.available += n
	}
	p.assert()
	return total, nil
}

// WriteByteArray appends b without copying, b must not be modified afterwards.
func (p *Packet) WriteByteArray(b []byte) {
	if len(b) == 0 {
		return
	}
	p.WriteBuffer(WrapBuffer(b))
}

// WriteByte implements io.ByteWriter.
func (p *Packet) WriteByte(c byte) error {
	t := p.tail()
	if t == nil {
		t = p.grow()
	}
	t.data[t.writeIndex] = c
	t.writeIndex++
	p.available++
	p.assert()
	return nil
}

// WriteInt16 writes a big-endian int16.
func (p *Packet) WriteInt16(v int16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], uint16(v))
	p.Write(tmp[:])
}

// WriteInt32 writes a big-endian int32.
func (p *Packet) WriteInt32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	p.Write(tmp[:])
}

// WriteInt64 writes a big-endian int64.
func (p *Packet) WriteInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	p.Write(tmp[:])
}

// WriteFloat32 writes a big-endian IEEE 754 float32.
func (p *Packet) WriteFloat32(v float32) {
	p.WriteInt32(int32(math.Float32bits(v)))
}

// WriteFloat64 writes a big-endian IEEE 754 float64.
func (p *Packet) WriteFloat64(v float64) {
	p.WriteInt64(int64(math.Float64bits(v)))
}

// WriteString implements io.StringWriter, s is written as UTF-8.
func (p *Packet) WriteString(s string) (int, error) {
	total := len(s)
	for len(s) > 0 {
		t := p.tail()
		if t == nil {
			t = p.grow()
		}
		n := copy(t.free(), s)
		t.writeIndex += n
		s = s[n:]
		p.available += n
	}
	p.assert()
	return total, nil
}

// FillFrom performs a single Read from r directly into the tail Buffer.
func (p *Packet) FillFrom(r io.Reader) (int, error) {
	t := p.tail()
	fresh := t == nil
	if fresh {
		t = NewBufferWith(p.alloc(), BufferSize)
	}
	n, err := r.Read(t.free())
	if n > 0 {
		t.writeIndex += n
		p.available += n
		if fresh {
			p.buffers = append(p.buffers, t)
		}
	} else if fresh {
		t.Close()
	}
	p.assert()
	return n, err
}

// WriteTo implements io.WriterTo, written bytes are consumed.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for len(p.buffers) > 0 {
		b := p.first()
		n, err := w.Write(b.Bytes())
		b.Discard(n)
		p.available -= n
		total += int64(n)
		p.dropFirstIfEmpty()
		if err != nil {
			p.assert()
			return total, err
		}
	}
	p.assert()
	return total, nil
}

// Steal moves the whole content into a new Packet and leaves p empty.
func (p *Packet) Steal() *Packet {
	result := NewWith(p.allocator)
	result.WritePacket(p)
	return result
}

// Clone copies the readable bytes into a new Packet, p is unchanged.
func (p *Packet) Clone() *Packet {
	result := NewWith(p.allocator)
	for _, b := range p.buffers {
		result.WriteBuffer(b.Clone())
	}
	return result
}

// Close releases all Buffers, closing an empty Packet is a no-op.
func (p *Packet) Close() {
	for i, b := range p.buffers {
		b.Close()
		p.buffers[i] = nil
	}
	p.buffers = nil
	p.available = 0
}
