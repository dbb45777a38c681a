// Package tapedev implements the device-source side of a tape capture:
// reading fixed-size blocks from a character-special tape device, a
// regular file, or standard input, and classifying each read the way the
// capture pipeline needs (data, tape mark, end of input, hard error).
package tapedev

import "fmt"

// Outcome classifies a single ReadBlock call.
type Outcome int

const (
	// OutcomeData means n bytes of real data were read into buf.
	OutcomeData Outcome = iota
	// OutcomeTapeMark means the device reported a zero-length record,
	// which on a real tape drive signals a tape mark.
	OutcomeTapeMark
	// OutcomeEndOfInput means the source is exhausted with no more
	// blocks to read, ever.
	OutcomeEndOfInput
	// OutcomeHardError means the device reported a medium error or
	// unrecovered read error; the caller may retry.
	OutcomeHardError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeData:
		return "data"
	case OutcomeTapeMark:
		return "tape-mark"
	case OutcomeEndOfInput:
		return "end-of-input"
	case OutcomeHardError:
		return "hard-error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Source reads fixed-size blocks from a tape-like device.
type Source interface {
	// ReadBlock reads into buf, returning the outcome and, for
	// OutcomeData, the number of bytes read. err carries the underlying
	// I/O error for OutcomeHardError, for logging and diagnostics.
	ReadBlock(buf []byte) (Outcome, int, error)

	// Close releases any resources held by the source.
	Close() error
}
