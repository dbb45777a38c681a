package simh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Encode returns the canonical byte encoding of obj. It does not touch any
// backing store; callers that need position tracking or buffering should
// go through simhio.Writer instead.
func Encode(obj Object) ([]byte, error) {
	switch o := obj.(type) {
	case DataRecord:
		return encodeDataRecord(o.Class, o.Payload)
	case ReservedDataRecord:
		return encodeDataRecord(o.Class, o.Payload)
	case TapeMark:
		return encodeWord(wordTapeMark), nil
	case EraseGap:
		buf := make([]byte, 4*int(o.Count))
		for i := uint32(0); i < o.Count; i++ {
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], wordEraseGap)
		}
		return buf, nil
	case EndOfMedium:
		return encodeWord(wordEndOfMedium), nil
	case PrivateMarker:
		return encodeWord(makeHeader(0x7, o.Value)), nil
	case ReservedMarker:
		h := makeHeader(0xF, o.Value)
		if err := checkLegalMarkerHeader(h); err != nil {
			return nil, err
		}
		return encodeWord(h), nil
	default:
		return nil, fmt.Errorf("simh: unknown object type %T", obj)
	}
}

func checkLegalMarkerHeader(h uint32) error {
	if h >= malformedLow && h <= malformedHigh {
		return &Error{Kind: MalformedMarker, Msg: "header collides with the reserved half-gap/erase-gap range"}
	}
	switch h {
	case wordEraseGap, wordEndOfMedium, wordHalfGapForward, wordTapeMark:
		return &Error{Kind: MalformedMarker, Msg: "header collides with a reserved sentinel word"}
	}
	return nil
}

func encodeDataRecord(class uint8, payload []byte) ([]byte, error) {
	if len(payload) >= maxPayloadLen {
		return nil, &Error{Kind: LengthOutOfRange, Msg: fmt.Sprintf("payload length %d exceeds 2^28-1", len(payload))}
	}
	h := makeHeader(class, uint32(len(payload)))
	pad := len(payload) % 2
	buf := make([]byte, 4+len(payload)+pad+4)
	binary.LittleEndian.PutUint32(buf[0:4], h)
	copy(buf[4:4+len(payload)], payload)
	binary.LittleEndian.PutUint32(buf[4+len(payload)+pad:], h)
	return buf, nil
}

func encodeWord(w uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, w)
	return buf
}

// DecodeForward reads one Object starting at rs's current position,
// dispatching on the class/value of the leading header word per the
// format's decode table. On success the cursor is left per the object's
// position contract (after a data record's trailing header, after a
// marker, or — for EndOfMedium — left unmoved so that a repeated read
// returns EndOfMedium again). ErrEndOfBacking is returned, not an error in
// the ordinary sense, when the source ends cleanly at an object boundary.
func DecodeForward(rs io.ReadSeeker) (Object, error) {
	for {
		h0, err := readHeaderWord(rs)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrEndOfBacking
			}
			return nil, err
		}

		class := uint8(h0 >> 28)
		value := h0 & headerValueMask

		switch {
		case h0 == wordTapeMark:
			return TapeMark{}, nil

		case class == 0x7:
			return PrivateMarker{Value: value}, nil

		case class == 0xF:
			switch {
			case h0 == wordEraseGap:
				return EraseGap{Count: 1}, nil
			case h0 == wordEndOfMedium:
				if _, err := rs.Seek(-4, io.SeekCurrent); err != nil {
					return nil, err
				}
				return EndOfMedium{}, nil
			case h0 == wordHalfGapForward:
				if _, err := rs.Seek(-2, io.SeekCurrent); err != nil {
					return nil, err
				}
				continue
			case h0 >= malformedLow && h0 <= malformedHigh:
				return nil, &Error{Kind: MalformedMarker, Msg: fmt.Sprintf("header 0x%08X is in the illegal range", h0)}
			default:
				return ReservedMarker{Value: value}, nil
			}

		default:
			return decodeDataRecordForward(rs, class, value, h0)
		}
	}
}

func decodeDataRecordForward(rs io.ReadSeeker, class uint8, value uint32, h0 uint32) (Object, error) {
	var payload []byte
	if value > 0 {
		payload = make([]byte, value)
		if _, err := io.ReadFull(rs, payload); err != nil {
			return nil, wrapTruncated(err)
		}
		if value%2 == 1 {
			var pad [1]byte
			if _, err := io.ReadFull(rs, pad[:]); err != nil {
				return nil, wrapTruncated(err)
			}
		}
	}

	h1, err := readHeaderWord(rs)
	if err != nil {
		return nil, wrapTruncated(err)
	}
	if h1 != h0 {
		return nil, &Error{Kind: CorruptRecord, Msg: fmt.Sprintf("leading header 0x%08X != trailing header 0x%08X", h0, h1)}
	}

	if IsReservedDataClass(class) {
		return ReservedDataRecord{Class: class, Payload: payload}, nil
	}
	return DataRecord{Class: class, Payload: payload}, nil
}

// DecodeReverse reads the Object whose bytes end at rs's current position,
// moving the cursor to immediately before the object's first byte — the
// mirror image of DecodeForward's "after" contract, so that a forward read
// and a subsequent reverse read from the resulting position cancel out.
func DecodeReverse(rs io.ReadSeeker) (Object, error) {
	pos, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if pos == 0 {
		return nil, ErrBeginningOfTape
	}

	for {
		if pos < 4 {
			return nil, &Error{Kind: UnexpectedEOF, Msg: "fewer than 4 bytes remain before the cursor"}
		}
		h0, err := readWordAt(rs, pos-4)
		if err != nil {
			return nil, err
		}

		class := uint8(h0 >> 28)
		value := h0 & headerValueMask

		switch {
		case h0 == wordTapeMark:
			return TapeMark{}, seekTo(rs, pos-4)

		case class == 0x7:
			if err := seekTo(rs, pos-4); err != nil {
				return nil, err
			}
			return PrivateMarker{Value: value}, nil

		case class == 0xF:
			switch {
			case h0 == wordEraseGap:
				if err := seekTo(rs, pos-4); err != nil {
					return nil, err
				}
				return EraseGap{Count: 1}, nil
			case h0 == wordEndOfMedium:
				if err := seekTo(rs, pos-4); err != nil {
					return nil, err
				}
				return EndOfMedium{}, nil
			case isReverseHalfGap(h0):
				pos -= 2
				continue
			case h0 >= malformedLow && h0 <= malformedHigh:
				return nil, &Error{Kind: MalformedMarker, Msg: fmt.Sprintf("header 0x%08X is in the illegal range", h0)}
			default:
				if err := seekTo(rs, pos-4); err != nil {
					return nil, err
				}
				return ReservedMarker{Value: value}, nil
			}

		default:
			return decodeDataRecordReverse(rs, pos, class, value, h0)
		}
	}
}

func decodeDataRecordReverse(rs io.ReadSeeker, pos int64, class uint8, value uint32, h0 uint32) (Object, error) {
	pad := int64(0)
	if value%2 == 1 {
		pad = 1
	}
	payloadEnd := pos - 4
	payloadStart := payloadEnd - int64(value) - pad
	leadingPos := payloadStart - 4
	if leadingPos < 0 {
		return nil, &Error{Kind: UnexpectedEOF, Msg: "record extends before the start of the backing store"}
	}

	h1, err := readWordAt(rs, leadingPos)
	if err != nil {
		return nil, err
	}
	if h1 != h0 {
		return nil, &Error{Kind: CorruptRecord, Msg: fmt.Sprintf("leading header 0x%08X != trailing header 0x%08X", h1, h0)}
	}

	var payload []byte
	if value > 0 {
		payload = make([]byte, value)
		if _, err := rs.Seek(payloadStart, io.SeekStart); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(rs, payload); err != nil {
			return nil, wrapTruncated(err)
		}
	}

	if err := seekTo(rs, leadingPos); err != nil {
		return nil, err
	}
	if IsReservedDataClass(class) {
		return ReservedDataRecord{Class: class, Payload: payload}, nil
	}
	return DataRecord{Class: class, Payload: payload}, nil
}

// isReverseHalfGap reports whether h0, read as the word immediately before
// the cursor, is the two-byte-misaligned residue of an erase gap
// overwritten by a data record. Scanning backward, an intact gap word's
// trailing two bytes (0xFFFF) land in the high half of the word read at
// the stale boundary, with the low half belonging to whatever the
// overwrite left behind; that low half is excluded from 0xFFFE/0xFFFF so a
// genuine gap or end-of-medium word is never mistaken for residue.
func isReverseHalfGap(h0 uint32) bool {
	low := h0 & 0xFFFF
	high := h0 >> 16
	return high == 0xFFFF && low != 0xFFFE && low != 0xFFFF
}

func readHeaderWord(r io.Reader) (uint32, error) {
	var buf [4]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return 0, io.EOF
		}
		return 0, wrapTruncated(err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readWordAt(rs io.ReadSeeker, pos int64) (uint32, error) {
	if _, err := rs.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := io.ReadFull(rs, buf[:]); err != nil {
		return 0, &Error{Kind: UnexpectedEOF, Msg: "short read for header word", Err: err}
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func seekTo(rs io.ReadSeeker, pos int64) error {
	_, err := rs.Seek(pos, io.SeekStart)
	return err
}

func wrapTruncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Kind: TruncatedRecord, Msg: "end of file mid-record", Err: err}
	}
	return err
}
