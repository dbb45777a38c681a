package tapedev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mtOp mirrors struct mtop from <sys/mtio.h>: the argument to the MTIOCTOP
// ioctl used to rewind, space, or otherwise command a Linux tape drive.
type mtOp struct {
	Type  int16
	Pad   int16
	Count int32
}

const (
	mtRewind = 6 // MTREW
	mtOffl   = 7 // MTOFFL: rewind and unload
)

// CharDevice reads fixed-size blocks from a character-special tape device
// such as /dev/nst0, classifying each read per the tape-drive read
// semantics: a zero-length record is a tape mark, not data.
type CharDevice struct {
	f *os.File
}

// OpenCharDevice opens the tape device at path for reading.
func OpenCharDevice(path string) (*CharDevice, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("tapedev: open %s: %w", path, err)
	}
	return &CharDevice{f: f}, nil
}

// ReadBlock implements Source.
func (d *CharDevice) ReadBlock(buf []byte) (Outcome, int, error) {
	n, err := d.f.Read(buf)
	switch {
	// os.File reports a zero-length read(2) as io.EOF.
	case n == 0 && (err == nil || errors.Is(err, io.EOF)):
		return OutcomeTapeMark, 0, nil
	case err == nil:
		return OutcomeData, n, nil
	case errors.Is(err, os.ErrClosed):
		return OutcomeEndOfInput, 0, err
	}

	if errors.Is(err, unix.EIO) || errors.Is(err, unix.ENOSPC) {
		return OutcomeHardError, n, err
	}
	if n == 0 {
		return OutcomeEndOfInput, 0, nil
	}
	return OutcomeData, n, nil
}

// Rewind issues an MTIOCTOP/MTREW ioctl, repositioning the drive at the
// beginning of the tape.
func (d *CharDevice) Rewind() error {
	return d.mtOp(mtRewind, 1)
}

// Unload issues an MTIOCTOP/MTOFFL ioctl, rewinding and unloading the tape.
func (d *CharDevice) Unload() error {
	return d.mtOp(mtOffl, 1)
}

func (d *CharDevice) mtOp(op int16, count int32) error {
	arg := mtOp{Type: op, Count: count}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.MTIOCTOP, uintptr(unsafe.Pointer(&arg)))
	if errno != 0 {
		return fmt.Errorf("tapedev: MTIOCTOP(%d): %w", op, errno)
	}
	return nil
}

// Close implements Source.
func (d *CharDevice) Close() error {
	return d.f.Close()
}
