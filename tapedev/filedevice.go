package tapedev

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// FileDevice reads fixed-size blocks from a regular file or a stream with
// no tape-mark semantics: every read is either data or, at EOF, end of
// input. It backs both OpenFile and Stdin.
type FileDevice struct {
	r      io.Reader
	closer io.Closer
}

// OpenFile opens path for reading as a plain file source.
func OpenFile(path string) (*FileDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tapedev: open %s: %w", path, err)
	}
	return &FileDevice{r: f, closer: f}, nil
}

// Stdin wraps os.Stdin as a file source.
func Stdin() *FileDevice {
	return &FileDevice{r: os.Stdin}
}

// ReadBlock implements Source. TapeMark is never produced.
func (d *FileDevice) ReadBlock(buf []byte) (Outcome, int, error) {
	n, err := d.r.Read(buf)
	if n > 0 {
		return OutcomeData, n, nil
	}
	if errors.Is(err, io.EOF) {
		return OutcomeEndOfInput, 0, nil
	}
	if err != nil {
		return OutcomeHardError, 0, err
	}
	return OutcomeEndOfInput, 0, nil
}

// Close implements Source.
func (d *FileDevice) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
