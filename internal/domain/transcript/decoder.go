package transcript

import (
	"bytes"
	"strings"
)

// LineDecoder turns raw chunks of a response body into candidate fragment
// lines.
//
// By default every chunk is decoded on its own: it is trimmed and split on
// newlines, and nothing is carried over to the next chunk, so a fragment
// split across two reads is lost. A buffered decoder instead holds back the
// trailing partial line (as bytes, so multi-byte characters are never cut)
// until the newline that ends it arrives, or until Flush.
type LineDecoder struct {
	buffered  bool
	remainder []byte
}

func NewLineDecoder(buffered bool) *LineDecoder {
	return &LineDecoder{buffered: buffered}
}

func (d *LineDecoder) Buffered() bool {
	return d.buffered
}

// Decode returns the candidate lines completed by chunk.
func (d *LineDecoder) Decode(chunk []byte) []string {
	if !d.buffered {
		return splitLines(decodeText(chunk))
	}

	data := append(d.remainder, chunk...)
	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		d.remainder = data
		return nil
	}
	d.remainder = append([]byte(nil), data[cut+1:]...)
	return splitLines(decodeText(data[:cut]))
}

// Flush returns whatever partial line a buffered decoder still holds. It is
// a no-op for the per-chunk decoder.
func (d *LineDecoder) Flush() []string {
	if len(d.remainder) == 0 {
		return nil
	}
	rest := d.remainder
	d.remainder = nil
	return splitLines(decodeText(rest))
}

// decodeText reads bytes as UTF-8, replacing invalid sequences the way a
// text decoder does.
func decodeText(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func splitLines(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
