// Package capture implements the tape-capture pipeline: a reader worker
// that drains a block-oriented tapedev.Source and a writer worker that
// serializes the resulting record stream through a simhio.Writer, joined
// by a bounded queue of reusable buffers.
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/sergev/simhcapture/capturelog"
	"github.com/sergev/simhcapture/simhio"
	"github.com/sergev/simhcapture/tapedev"
)

// Options carries the pipeline's tunables, matching the CLI flags
// documented for the capture tool.
type Options struct {
	// MaxReattempts is the number of extra read attempts after a hard
	// device error before the block is written as a bad record.
	MaxReattempts int
	// BufferSize is the size, in bytes, of each pooled read buffer. It
	// should be at least the device's maximum block size.
	BufferSize int
	// QueueDepth is the capacity of the channel joining the reader and
	// writer workers; it bounds in-flight buffers.
	QueueDepth int
	// BackoffBaseDelay scales the delay between retry attempts:
	// attempt i waits BackoffBaseDelay * (i+1).
	BackoffBaseDelay time.Duration
	// Device labels log output with the source being captured; purely
	// cosmetic.
	Device string
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxReattempts:    64,
		BufferSize:       65536,
		QueueDepth:       4,
		BackoffBaseDelay: 10 * time.Millisecond,
	}
}

// Stats summarizes one pipeline run.
type Stats struct {
	Records      int
	TapeMarks    int
	BadRecords   int
	BytesWritten int64
}

// Pipeline drains src into w.
type Pipeline struct {
	src  tapedev.Source
	w    *simhio.Writer
	opts Options
	log  *capturelog.FieldLogger
	pool sync.Pool
}

// New constructs a Pipeline. log may be nil, in which case a discarding
// logger is used.
func New(src tapedev.Source, w *simhio.Writer, opts Options, log *capturelog.Logger) *Pipeline {
	if log == nil {
		log = capturelog.Discard()
	}
	p := &Pipeline{src: src, w: w, opts: opts, log: log.WithDevice(opts.Device)}
	p.pool.New = func() any {
		return make([]byte, opts.BufferSize)
	}
	return p
}

type blockMsg struct {
	outcome   tapedev.Outcome
	buf       []byte
	n         int
	err       error
	exhausted bool
}

// Run drains the source into the writer until the source reports end of
// input, two consecutive tape marks are observed, or ctx is cancelled. It
// always leaves the writer flushed with a trailing EndOfMedium object, and
// returns once both workers have exited.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan blockMsg, p.opts.QueueDepth)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(ch)
		p.readLoop(ctx, ch)
	}()

	stats, err := p.writeLoop(ctx, ch, cancel)
	wg.Wait()
	return stats, err
}

func (p *Pipeline) readLoop(ctx context.Context, ch chan<- blockMsg) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		buf := p.pool.Get().([]byte)
		outcome, n, err, exhausted := p.readWithRetry(ctx, buf)

		select {
		case ch <- blockMsg{outcome: outcome, buf: buf, n: n, err: err, exhausted: exhausted}:
		case <-ctx.Done():
			p.pool.Put(buf)
			return
		}

		if outcome == tapedev.OutcomeEndOfInput {
			return
		}
	}
}

func (p *Pipeline) readWithRetry(ctx context.Context, buf []byte) (tapedev.Outcome, int, error, bool) {
	var outcome tapedev.Outcome
	var n int
	var err error

	for attempt := 0; attempt <= p.opts.MaxReattempts; attempt++ {
		outcome, n, err = p.src.ReadBlock(buf)
		if outcome != tapedev.OutcomeHardError {
			return outcome, n, err, false
		}

		p.log.Attempt(attempt, err)
		if attempt == p.opts.MaxReattempts {
			break
		}

		select {
		case <-ctx.Done():
			return outcome, n, err, true
		case <-time.After(p.opts.BackoffBaseDelay * time.Duration(attempt+1)):
		}
	}
	return tapedev.OutcomeHardError, n, err, true
}

func (p *Pipeline) writeLoop(ctx context.Context, ch <-chan blockMsg, cancel context.CancelFunc) (Stats, error) {
	var stats Stats
	prevTapeMark := false

	finish := func(err error) (Stats, error) {
		cancel()
		if ferr := p.w.WriteEndOfMedium(); ferr != nil && err == nil {
			err = ferr
		}
		if ferr := p.w.Flush(); ferr != nil && err == nil {
			err = ferr
		}
		return stats, err
	}

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return finish(ctx.Err())
			}

			switch {
			case msg.outcome == tapedev.OutcomeData:
				if err := p.w.WriteRecord(0, msg.buf[:msg.n]); err != nil {
					p.pool.Put(msg.buf)
					return finish(err)
				}
				stats.Records++
				stats.BytesWritten += int64(msg.n)
				prevTapeMark = false

			case msg.outcome == tapedev.OutcomeTapeMark:
				if err := p.w.WriteTapeMark(); err != nil {
					p.pool.Put(msg.buf)
					return finish(err)
				}
				stats.TapeMarks++
				if prevTapeMark {
					p.pool.Put(msg.buf)
					cancel()
					return finish(nil)
				}
				prevTapeMark = true

			case msg.outcome == tapedev.OutcomeHardError && msg.exhausted:
				if err := p.w.WriteBadRecord(msg.buf[:msg.n]); err != nil {
					p.pool.Put(msg.buf)
					return finish(err)
				}
				stats.BadRecords++
				p.log.Error("read retries exhausted, emitting bad record", capturelog.Fields{capturelog.FieldBytesRecovered: msg.n})
				prevTapeMark = false

			case msg.outcome == tapedev.OutcomeEndOfInput:
				p.pool.Put(msg.buf)
				return finish(nil)
			}

			p.pool.Put(msg.buf)

		case <-ctx.Done():
			return finish(ctx.Err())
		}
	}
}
