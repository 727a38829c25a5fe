package pool

import "sync"

// Filter buffers always carry one reserved sentinel byte before the
// caller-visible region (§4.1's "buffer layout guarantee"), so every pool
// below hands out size+1 bytes; index 0 is reserved and [1:] is the buffer
// the filter actually reads/writes through. The decode FSM keeps last_char
// in its own Filter field, not in index 0.

// largeBufferPool backs filter buffers over 64KB and up to 1MB, such as an
// image adapter created with a large bufSize.
var largeBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 1+1024*1024)
		return &buf
	},
}

// mediumBufferPool backs the common case: a generic decode filter with the
// default 64KB buffer.
var mediumBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 1+64*1024)
		return &buf
	},
}

// smallBufferPool backs small, fixed-size filters like ObFontDecode (1KB)
// and the RC4 scratch buffer.
var smallBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 1+4*1024)
		return &buf
	},
}

func clear(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

// GetFilterBuffer returns a zeroed buffer of at least size+1 bytes (size
// visible bytes plus the leading sentinel). Buffers larger than 1MB are
// allocated directly rather than pooled.
func GetFilterBuffer(size int) []byte {
	var buf *[]byte
	switch {
	case size <= 4*1024:
		buf = smallBufferPool.Get().(*[]byte)
	case size <= 64*1024:
		buf = mediumBufferPool.Get().(*[]byte)
	case size <= 1024*1024:
		buf = largeBufferPool.Get().(*[]byte)
	default:
		direct := make([]byte, size+1)
		return direct
	}
	if len(*buf) < size+1 {
		*buf = make([]byte, size+1)
	}
	out := (*buf)[:size+1]
	clear(out)
	return out
}

// PutFilterBuffer returns buf to the appropriately sized pool. Buffers that
// were allocated directly (over 1MB) are simply dropped.
func PutFilterBuffer(buf []byte) {
	n := cap(buf)
	full := buf[:n]
	switch {
	case n == 1+4*1024:
		smallBufferPool.Put(&full)
	case n == 1+64*1024:
		mediumBufferPool.Put(&full)
	case n == 1+1024*1024:
		largeBufferPool.Put(&full)
	}
}
