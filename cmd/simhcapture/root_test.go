package main

import (
	"errors"
	"os"
	"testing"
)

func TestExitCodeForCliError(t *testing.T) {
	err := &cliError{code: exitIO, err: errors.New("boom")}
	if got := exitCodeFor(err); got != exitIO {
		t.Fatalf("exitCodeFor = %d, want %d", got, exitIO)
	}
}

func TestExitCodeForPlainErrorDefaultsToUsage(t *testing.T) {
	if got := exitCodeFor(errors.New("bad args")); got != exitUsage {
		t.Fatalf("exitCodeFor = %d, want %d", got, exitUsage)
	}
}

func TestOpenSourceStdinShorthand(t *testing.T) {
	src, err := openSource("-")
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer src.Close()
	if _, ok := src.(interface{ Close() error }); !ok {
		t.Fatal("expected a Source")
	}
}

func TestOpenSourceRegularFile(t *testing.T) {
	f := t.TempDir() + "/input.tap"
	if err := os.WriteFile(f, []byte{0xFF, 0xFF, 0xFF, 0xFF}, 0644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	src, err := openSource(f)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer src.Close()

	buf := make([]byte, 4)
	_, n, err := src.ReadBlock(buf)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}
}
