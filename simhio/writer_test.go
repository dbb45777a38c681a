package simhio

import (
	"bytes"
	"testing"

	"github.com/sergev/simhcapture/simh"
)

func TestWriterPositionTracksBytesWritten(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteRecord(0, []byte("Hi")); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if w.Position() != uint64(buf.Len()) {
		t.Fatalf("Position() = %d, want %d", w.Position(), buf.Len())
	}

	if err := w.WriteTapeMark(); err != nil {
		t.Fatalf("WriteTapeMark: %v", err)
	}
	if err := w.WriteEndOfMedium(); err != nil {
		t.Fatalf("WriteEndOfMedium: %v", err)
	}

	want := []byte{
		0x02, 0x00, 0x00, 0x00, 0x48, 0x69, 0x02, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0xFF, 0xFF, 0xFF, 0xFF,
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % X, want % X", buf.Bytes(), want)
	}
	if w.Position() != uint64(len(want)) {
		t.Fatalf("final Position() = %d, want %d", w.Position(), len(want))
	}
}

func TestWriterRejectsOverLengthPayloadWithoutPartialWrite(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteRecord(0, make([]byte, 1<<28))
	if err == nil {
		t.Fatal("expected error for over-length payload")
	}
	if buf.Len() != 0 {
		t.Fatalf("sink has %d bytes after rejected write, want 0", buf.Len())
	}
}

func TestWriterReservedDataClassRoutesToReservedDataRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteRecord(0xB, []byte{1}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	obj, err := r.ReadForward()
	if err != nil {
		t.Fatalf("ReadForward: %v", err)
	}
	rec, ok := obj.(simh.ReservedDataRecord)
	if !ok || rec.Class != 0xB {
		t.Fatalf("got %#v, want ReservedDataRecord{Class: 0xB}", obj)
	}
}

func TestWriterBadRecordIsClassEight(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBadRecord(nil); err != nil {
		t.Fatalf("WriteBadRecord: %v", err)
	}
	want := []byte{0x00, 0x00, 0x00, 0x80, 0x00, 0x00, 0x00, 0x80}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got % X, want % X", buf.Bytes(), want)
	}
}
