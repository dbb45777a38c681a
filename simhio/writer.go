// Package simhio layers a positioned stream writer and reader on top of the
// simh framing codec, matching SIMH's own notion of a tape image as a flat
// byte sink/source with a monotonic write cursor and a seekable read cursor.
package simhio

import (
	"io"

	"github.com/sergev/simhcapture/simh"
)

// Writer appends encoded simh.Objects to an underlying io.Writer, tracking
// the number of bytes written so far. Every write method encodes its object
// completely before touching the sink, so a rejected object (e.g. an
// over-length payload) never produces a partial write.
type Writer struct {
	w   io.Writer
	pos uint64
}

// NewWriter wraps w. w is written to directly; callers that want buffering
// should pass a *bufio.Writer and call Flush themselves.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteObject encodes obj and appends it to the sink.
func (wr *Writer) WriteObject(obj simh.Object) error {
	enc, err := simh.Encode(obj)
	if err != nil {
		return err
	}
	n, err := wr.w.Write(enc)
	wr.pos += uint64(n)
	return err
}

// WriteRecord writes a DataRecord (or ReservedDataRecord, for class in
// 9-D) of the given class with payload.
func (wr *Writer) WriteRecord(class uint8, payload []byte) error {
	if simh.IsReservedDataClass(class) {
		return wr.WriteObject(simh.ReservedDataRecord{Class: class, Payload: payload})
	}
	return wr.WriteObject(simh.DataRecord{Class: class, Payload: payload})
}

// WriteBadRecord writes a class-8 "bad, no data recovered" record. payload
// is usually empty; if the device recovered partial bytes before giving up,
// pass them here.
func (wr *Writer) WriteBadRecord(payload []byte) error {
	return wr.WriteObject(simh.DataRecord{Class: 0x8, Payload: payload})
}

// WriteTapeMark appends a tape mark.
func (wr *Writer) WriteTapeMark() error {
	return wr.WriteObject(simh.TapeMark{})
}

// WriteEraseGap appends count consecutive erase-gap marker words.
func (wr *Writer) WriteEraseGap(count uint32) error {
	return wr.WriteObject(simh.EraseGap{Count: count})
}

// WriteEndOfMedium appends the logical end-of-tape sentinel.
func (wr *Writer) WriteEndOfMedium() error {
	return wr.WriteObject(simh.EndOfMedium{})
}

// Flush flushes the underlying sink if it implements an explicit Flush
// method (as *bufio.Writer does); otherwise it is a no-op.
func (wr *Writer) Flush() error {
	if f, ok := wr.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// Position returns the number of bytes written so far.
func (wr *Writer) Position() uint64 {
	return wr.pos
}
