package tapedev

import (
	"bytes"
	"io"
	"testing"
)

func TestFileDeviceReadsDataThenEndOfInput(t *testing.T) {
	d := &FileDevice{r: bytes.NewReader([]byte("hello"))}

	buf := make([]byte, 3)
	outcome, n, err := d.ReadBlock(buf)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if outcome != OutcomeData || n != 3 || string(buf[:n]) != "hel" {
		t.Fatalf("got outcome=%v n=%d buf=%q", outcome, n, buf[:n])
	}

	outcome, n, err = d.ReadBlock(buf)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if outcome != OutcomeData || n != 2 || string(buf[:n]) != "lo" {
		t.Fatalf("got outcome=%v n=%d buf=%q", outcome, n, buf[:n])
	}

	outcome, n, err = d.ReadBlock(buf)
	if err != nil {
		t.Fatalf("ReadBlock at EOF: %v", err)
	}
	if outcome != OutcomeEndOfInput || n != 0 {
		t.Fatalf("got outcome=%v n=%d, want EndOfInput/0", outcome, n)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestFileDeviceHardErrorOnNonEOFFailure(t *testing.T) {
	d := &FileDevice{r: errReader{err: io.ErrClosedPipe}}

	outcome, _, err := d.ReadBlock(make([]byte, 4))
	if outcome != OutcomeHardError || err == nil {
		t.Fatalf("got outcome=%v err=%v, want HardError with non-nil err", outcome, err)
	}
}

func TestFileDeviceCloseWithoutCloserIsNoop(t *testing.T) {
	d := &FileDevice{r: bytes.NewReader(nil)}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
