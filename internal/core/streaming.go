package core

// streaming.go prepares an object body for the CSV reader without loading
// it into memory: the UTF-8 BOM written by spreadsheet exports is dropped,
// invalid UTF-8 is replaced with U+FFFD, and raw bytes are counted for the
// import summary.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// countingReader tracks bytes read from the underlying source.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// BodyReader is a sanitizing reader over an object body.
type BodyReader struct {
	src     *bufio.Reader
	counter *countingReader

	bomChecked bool

	// Encoded bytes of a rune that did not fit the caller's buffer.
	pending []byte
}

// NewBodyReader wraps r.
func NewBodyReader(r io.Reader) *BodyReader {
	counter := &countingReader{r: r}
	return &BodyReader{
		src:     bufio.NewReaderSize(counter, 64*1024),
		counter: counter,
	}
}

// BytesRead returns the number of raw bytes consumed from the source.
func (b *BodyReader) BytesRead() int64 { return b.counter.n }

// Read implements io.Reader.
func (b *BodyReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !b.bomChecked {
		b.bomChecked = true
		if head, _ := b.src.Peek(len(utf8BOM)); bytes.Equal(head, utf8BOM) {
			_, _ = b.src.Discard(len(utf8BOM))
		}
	}

	n := copy(p, b.pending)
	b.pending = b.pending[n:]

	for n < len(p) {
		// ASCII fast path: copy the run of single-byte runes directly.
		if buffered := b.src.Buffered(); buffered > 0 {
			peek, _ := b.src.Peek(min(buffered, len(p)-n))
			ascii := 0
			for ascii < len(peek) && peek[ascii] < utf8.RuneSelf {
				ascii++
			}
			if ascii > 0 {
				copy(p[n:], peek[:ascii])
				_, _ = b.src.Discard(ascii)
				n += ascii
				continue
			}
		}

		r, _, err := b.src.ReadRune()
		if err != nil {
			if n > 0 && err == io.EOF {
				return n, nil
			}
			return n, err
		}

		var enc [utf8.UTFMax]byte
		size := utf8.EncodeRune(enc[:], r)
		written := copy(p[n:], enc[:size])
		n += written
		if written < size {
			b.pending = append(b.pending[:0], enc[written:size]...)
		}
	}
	return n, nil
}
