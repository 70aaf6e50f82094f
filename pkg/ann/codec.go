package ann

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
)

// binWriter writes little-endian primitives with a sticky error
type binWriter struct {
	w   *bufio.Writer
	buf [8]byte
	err error
}

func newBinWriter(w io.Writer) *binWriter {
	return &binWriter{w: bufio.NewWriter(w)}
}

func (b *binWriter) flush() error {
	if b.err != nil {
		return b.err
	}
	return b.w.Flush()
}

func (b *binWriter) write(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(b.buf[:4], v)
	b.write(b.buf[:4])
}

func (b *binWriter) i32(v int32) { b.u32(uint32(v)) }

func (b *binWriter) i64(v int64) {
	binary.LittleEndian.PutUint64(b.buf[:8], uint64(v))
	b.write(b.buf[:8])
}

func (b *binWriter) f32(v float32) { b.u32(math.Float32bits(v)) }

func (b *binWriter) f32s(vs []float32) {
	for _, v := range vs {
		b.f32(v)
	}
}

func (b *binWriter) bytes(p []byte) {
	b.u32(uint32(len(p)))
	b.write(p)
}

// binReader reads little-endian primitives with a sticky error
type binReader struct {
	r   io.Reader
	buf [8]byte
	err error
}

func newBinReader(r io.Reader) *binReader {
	return &binReader{r: r}
}

func (b *binReader) read(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = io.ReadFull(b.r, p)
}

func (b *binReader) u32() uint32 {
	b.read(b.buf[:4])
	if b.err != nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b.buf[:4])
}

func (b *binReader) i32() int32 { return int32(b.u32()) }

func (b *binReader) i64() int64 {
	b.read(b.buf[:8])
	if b.err != nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(b.buf[:8]))
}

func (b *binReader) f32() float32 { return math.Float32frombits(b.u32()) }

func (b *binReader) f32s(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = b.f32()
	}
	return out
}

func (b *binReader) bytes() []byte {
	n := b.u32()
	if b.err != nil {
		return nil
	}
	p := make([]byte, n)
	b.read(p)
	return p
}
