package minimqtt

import "sync"

// maxPooledBuffer caps the capacity of encode buffers returned to the pool,
// so a single large publish does not stay pinned in memory.
const maxPooledBuffer = 64 * 1024

var (
	encodeBufferPool = sync.Pool{
		New: func() any { return &bytesBuffer{} },
	}

	decodeReaderPool = sync.Pool{
		New: func() any { return &bytesReader{} },
	}
)

// getBytesBuffer returns an empty encode buffer.
func getBytesBuffer() *bytesBuffer {
	b := encodeBufferPool.Get().(*bytesBuffer)
	b.data = b.data[:0]
	return b
}

func putBytesBuffer(b *bytesBuffer) {
	if b == nil || cap(b.data) > maxPooledBuffer {
		return
	}
	b.data = b.data[:0]
	encodeBufferPool.Put(b)
}

// getBytesReader returns a reader over data.
func getBytesReader(data []byte) *bytesReader {
	r := decodeReaderPool.Get().(*bytesReader)
	r.data, r.pos = data, 0
	return r
}

func putBytesReader(r *bytesReader) {
	if r == nil {
		return
	}
	r.data, r.pos = nil, 0
	decodeReaderPool.Put(r)
}
