package storage

import "bytes"

// bytesReadSeekCloser adapts a byte slice to the io.ReadSeekCloser the blob
// upload API requires. The SDK needs Seek to rewind the body on retries.
type bytesReadSeekCloser struct {
	*bytes.Reader
}

func newBytesReadSeekCloser(data []byte) bytesReadSeekCloser {
	return bytesReadSeekCloser{Reader: bytes.NewReader(data)}
}

func (bytesReadSeekCloser) Close() error { return nil }
