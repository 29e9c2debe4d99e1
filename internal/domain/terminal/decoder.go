package terminal

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StreamDecoder turns a byte stream into UTF-8 text chunk by chunk.
// A multi-byte sequence cut by a read boundary is held back and completed by
// the next chunk; bytes that can never form a valid sequence become U+FFFD.
// Not safe for concurrent use.
type StreamDecoder struct {
	t       transform.Transformer
	dst     []byte
	pending []byte
}

// NewStreamDecoder creates a decoder with an empty carry buffer.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{
		t:   unicode.UTF8.NewDecoder(),
		dst: make([]byte, 4096),
	}
}

// Decode returns the text for every complete sequence in the carried bytes
// followed by p. An incomplete trailing sequence is kept for the next call.
func (d *StreamDecoder) Decode(p []byte) string {
	src := make([]byte, 0, len(d.pending)+len(p))
	src = append(src, d.pending...)
	src = append(src, p...)
	d.pending = d.pending[:0]

	return d.run(src, false)
}

// Flush returns whatever is still carried, replacing the incomplete tail with
// U+FFFD, and resets the decoder. Call it once the stream has ended.
func (d *StreamDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	src := d.pending
	d.pending = nil
	out := d.run(src, true)
	d.t.Reset()
	return out
}

// Pending reports how many bytes are carried over to the next Decode.
func (d *StreamDecoder) Pending() int {
	return len(d.pending)
}

func (d *StreamDecoder) run(src []byte, atEOF bool) string {
	var out strings.Builder
	for len(src) > 0 {
		nDst, nSrc, err := d.t.Transform(d.dst, src, atEOF)
		out.Write(d.dst[:nDst])
		src = src[nSrc:]

		switch err {
		case nil:
			// everything consumed
		case transform.ErrShortDst:
			continue
		case transform.ErrShortSrc:
			d.pending = append(d.pending, src...)
			return out.String()
		default:
			// Ill-formed byte the transformer refused to replace itself.
			if len(src) > 0 {
				out.WriteRune(utf8.RuneError)
				src = src[1:]
			}
			d.t.Reset()
		}
	}
	return out.String()
}
