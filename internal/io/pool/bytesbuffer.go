// Package pool holds the sync.Pool-backed buffer pools the filter registry
// draws on when allocating a filter's buffer (§4.2 creation step "allocate
// the filter's buffer"). Pooling keeps filter recycling cheap: closing a
// filter returns its buffer to the pool instead of letting it get collected.
package pool

import "sync"

// diagBuffer pools small byte slices for accumulating short diagnostic
// strings without allocating a fresh one each time. No filter in this
// module draws on it; StreamDecode's Strict-mode warning goes straight to
// the logger.
var diagBuffer = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 0, 256)
		return &buf
	},
}

// GetDiagBuffer returns a zero-length []byte with spare capacity for
// building a short diagnostic message.
func GetDiagBuffer() *[]byte {
	buf := diagBuffer.Get().(*[]byte)
	*buf = (*buf)[:0]
	return buf
}

// PutDiagBuffer returns buf to the pool.
func PutDiagBuffer(buf *[]byte) {
	diagBuffer.Put(buf)
}
