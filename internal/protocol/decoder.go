// Package protocol provides the streaming decoder that reassembles frames
// from raw TCP reads, carrying partial trailing data between reads.
package protocol

import (
	"bytes"
	"strings"
)

// Decoder accumulates raw bytes from a connection and yields complete,
// newline-terminated frames. A single read from the peer may contain
// zero, one, or many frames, and a frame may be split across two reads;
// the decoder owns the carry buffer that makes both cases safe.
//
// Decoding is tolerant: a line with no '|' separator, or with an unknown
// tag, is treated as an implicit MSG frame whose content is the whole
// line. Malformed input never produces an error.
type Decoder struct {
	carry    []byte
	maxFrame int
}

// NewDecoder creates a decoder. maxFrame bounds the carry buffer: if a
// peer streams more than maxFrame bytes without a newline, the carried
// data is flushed as a complete frame instead of growing without bound.
// maxFrame <= 0 disables the bound.
func NewDecoder(maxFrame int) *Decoder {
	return &Decoder{maxFrame: maxFrame}
}

// Push appends a chunk of received bytes and returns all frames completed
// by it. Trailing bytes after the last newline are carried forward to the
// next Push.
func (d *Decoder) Push(chunk []byte) []Frame {
	d.carry = append(d.carry, chunk...)

	var frames []Frame
	for {
		idx := bytes.IndexByte(d.carry, '\n')
		if idx < 0 {
			break
		}
		line := string(d.carry[:idx])
		d.carry = d.carry[idx+1:]
		if frame, ok := parseLine(line); ok {
			frames = append(frames, frame)
		}
	}

	if d.maxFrame > 0 && len(d.carry) >= d.maxFrame {
		line := string(d.carry)
		d.carry = nil
		if frame, ok := parseLine(line); ok {
			frames = append(frames, frame)
		}
	}

	return frames
}

// Pending returns the number of carried bytes awaiting a newline.
func (d *Decoder) Pending() int {
	return len(d.carry)
}

// parseLine converts one line into a frame. Empty lines are discarded.
func parseLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Frame{}, false
	}

	tag, content, found := strings.Cut(line, "|")
	if !found || !IsKnownType(tag) {
		// Best-effort degradation: the whole line becomes chat content.
		return Frame{Type: TypeMsg, Content: line}, true
	}
	return Frame{Type: tag, Content: content}, true
}
