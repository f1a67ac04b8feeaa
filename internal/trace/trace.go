// Package trace records presented-frame timing to a file and reads it back.
//
// A trace is a sequence of records, each framed as a 4-byte big-endian
// length followed by a msgpack payload. The first record is a Header,
// every following record is a history.Report.
package trace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/orion-care-sensor/modules/frameclock/internal/history"
)

// Version is written into every header.
const Version = 1

// MaxRecordSize bounds a single record; larger lengths mean a corrupt file.
const MaxRecordSize = 1 << 20

// ErrTraceCorrupt is returned when a record is truncated or malformed.
var ErrTraceCorrupt = errors.New("trace: corrupt")

// Header describes the recording session.
type Header struct {
	Version     int       `msgpack:"version"`
	SessionID   uuid.UUID `msgpack:"session_id"`
	InstanceID  string    `msgpack:"instance_id"`
	ClockID     uuid.UUID `msgpack:"clock_id"`
	RefreshRate float64   `msgpack:"refresh_rate"`
	Mode        string    `msgpack:"mode"`
	StartedAt   time.Time `msgpack:"started_at"`
}

// Writer appends frame reports to a trace. It implements the clock's
// Observer interface, can drain a report subscription (Consume) and is
// safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       *bufio.Writer
	closer  io.Closer
	header  Header
	frames  int64
	lastErr error
}

// NewWriter writes the session header and returns a writer for frame records.
// A new session ID is assigned when hdr.SessionID is zero.
// If w is an io.Closer, Close closes it.
func NewWriter(w io.Writer, hdr Header) (*Writer, error) {
	if hdr.SessionID == uuid.Nil {
		hdr.SessionID = uuid.New()
	}
	if hdr.StartedAt.IsZero() {
		hdr.StartedAt = time.Now()
	}
	hdr.Version = Version

	tw := &Writer{
		w:      bufio.NewWriter(w),
		header: hdr,
	}
	if c, ok := w.(io.Closer); ok {
		tw.closer = c
	}

	if err := tw.writeRecord(&hdr); err != nil {
		return nil, fmt.Errorf("failed to write trace header: %w", err)
	}

	slog.Debug("trace: session started", "session_id", hdr.SessionID, "refresh_rate", hdr.RefreshRate)
	return tw, nil
}

// Header returns the session header as written.
func (tw *Writer) Header() Header { return tw.header }

// Frames returns the number of frame records written.
func (tw *Writer) Frames() int64 {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.frames
}

// Write appends one frame report.
func (tw *Writer) Write(r history.Report) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writeRecord(&r); err != nil {
		tw.lastErr = err
		return err
	}
	tw.frames++
	return nil
}

// FramePresented records a report, logging failures once.
func (tw *Writer) FramePresented(r history.Report) {
	tw.mu.Lock()
	failed := tw.lastErr != nil
	tw.mu.Unlock()

	if err := tw.Write(r); err != nil && !failed {
		slog.Error("trace: failed to write frame", "frame_count", r.FrameCount, "error", err)
	}
}

// Consume records every report received on reports until the channel is
// closed.
func (tw *Writer) Consume(reports <-chan history.Report) {
	for r := range reports {
		tw.FramePresented(r)
	}
}

// Flush writes buffered records to the underlying writer.
func (tw *Writer) Flush() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.w.Flush()
}

// Close flushes and closes the underlying writer.
func (tw *Writer) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	err := tw.w.Flush()
	if tw.closer != nil {
		if cerr := tw.closer.Close(); err == nil {
			err = cerr
		}
	}

	slog.Debug("trace: session closed", "session_id", tw.header.SessionID, "frames", tw.frames)
	return err
}

// writeRecord frames v as 4 bytes big-endian length + msgpack data.
func (tw *Writer) writeRecord(v any) error {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal trace record: %w", err)
	}

	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(len(data)))

	if _, err := tw.w.Write(lengthPrefix[:]); err != nil {
		return fmt.Errorf("failed to write length prefix: %w", err)
	}
	if _, err := tw.w.Write(data); err != nil {
		return fmt.Errorf("failed to write trace record: %w", err)
	}
	return nil
}

// Reader reads a trace written by Writer.
type Reader struct {
	r      *bufio.Reader
	header Header
}

// NewReader reads the session header.
func NewReader(r io.Reader) (*Reader, error) {
	tr := &Reader{r: bufio.NewReader(r)}

	if err := tr.readRecord(&tr.header); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", ErrTraceCorrupt)
		}
		return nil, err
	}
	if tr.header.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrTraceCorrupt, tr.header.Version)
	}
	return tr, nil
}

// Header returns the session header.
func (tr *Reader) Header() Header { return tr.header }

// Next returns the next frame report, or io.EOF at a clean end of trace.
func (tr *Reader) Next() (history.Report, error) {
	var r history.Report
	err := tr.readRecord(&r)
	return r, err
}

// ReadAll returns every remaining frame report.
func (tr *Reader) ReadAll() ([]history.Report, error) {
	var reports []history.Report
	for {
		r, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return reports, nil
		}
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}
}

func (tr *Reader) readRecord(v any) error {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(tr.r, lengthBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%w: truncated length prefix: %v", ErrTraceCorrupt, err)
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length == 0 || length > MaxRecordSize {
		return fmt.Errorf("%w: record length %d", ErrTraceCorrupt, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(tr.r, data); err != nil {
		return fmt.Errorf("%w: truncated record: %v", ErrTraceCorrupt, err)
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrTraceCorrupt, err)
	}
	return nil
}
