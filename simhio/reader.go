package simhio

import (
	"errors"
	"io"

	"github.com/sergev/simhcapture/simh"
)

// Reader is a lazy forward/reverse sequence of simh.Objects over a seekable
// backing store, matching the cursor-position contract of SIMH's own tape
// read/space operations.
type Reader struct {
	rs io.ReadSeeker

	// coalesce, when true (the default), merges consecutive
	// EraseGap{Count:1} reads from the codec into a single EraseGap with
	// the accumulated count, per the stream reader's discretion to
	// coalesce adjacent gap markers.
	coalesce bool
}

// NewReader wraps rs. Adjacent single-marker erase gaps are coalesced by
// default; use NewReaderRaw to preserve the codec's one-marker-at-a-time
// granularity.
func NewReader(rs io.ReadSeeker) *Reader {
	return &Reader{rs: rs, coalesce: true}
}

// NewReaderRaw wraps rs without erase-gap coalescing.
func NewReaderRaw(rs io.ReadSeeker) *Reader {
	return &Reader{rs: rs, coalesce: false}
}

// ReadForward returns the next Object in forward order. It returns
// simh.ErrEndOfBacking when the backing store ends cleanly at an object
// boundary.
func (r *Reader) ReadForward() (simh.Object, error) {
	obj, err := simh.DecodeForward(r.rs)
	if err != nil {
		return nil, err
	}
	gap, ok := obj.(simh.EraseGap)
	if !ok || !r.coalesce {
		return obj, nil
	}

	total := gap.Count
	for {
		mark, err := r.rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		next, err := simh.DecodeForward(r.rs)
		if err != nil {
			if errors.Is(err, simh.ErrEndOfBacking) {
				break
			}
			return nil, err
		}
		nextGap, ok := next.(simh.EraseGap)
		if !ok {
			// Not another gap marker: rewind and stop coalescing.
			if _, err := r.rs.Seek(mark, io.SeekStart); err != nil {
				return nil, err
			}
			break
		}
		total += nextGap.Count
	}
	return simh.EraseGap{Count: total}, nil
}

// ReadReverse returns the Object immediately preceding the current cursor
// position, moving the cursor to that object's start. It returns
// simh.ErrBeginningOfTape at position 0.
func (r *Reader) ReadReverse() (simh.Object, error) {
	obj, err := simh.DecodeReverse(r.rs)
	if err != nil {
		return nil, err
	}
	gap, ok := obj.(simh.EraseGap)
	if !ok || !r.coalesce {
		return obj, nil
	}

	total := gap.Count
	for {
		mark, err := r.rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		prev, err := simh.DecodeReverse(r.rs)
		if err != nil {
			if errors.Is(err, simh.ErrBeginningOfTape) {
				break
			}
			return nil, err
		}
		prevGap, ok := prev.(simh.EraseGap)
		if !ok {
			if _, err := r.rs.Seek(mark, io.SeekStart); err != nil {
				return nil, err
			}
			break
		}
		total += prevGap.Count
	}
	return simh.EraseGap{Count: total}, nil
}

// Position returns the reader's current cursor offset.
func (r *Reader) Position() (uint64, error) {
	pos, err := r.rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	return uint64(pos), nil
}

// Seek moves the reader's cursor to an absolute byte offset.
func (r *Reader) Seek(pos uint64) error {
	_, err := r.rs.Seek(int64(pos), io.SeekStart)
	return err
}
