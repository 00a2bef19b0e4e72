// Package pipetransport implements C1: a single-writer, single-reader
// duplex framed byte stream to the camera sidecar. Frames are
// newline-terminated JSON; this package only deals in raw bytes and
// lines, leaving envelope decoding to the supervisor.
package pipetransport

import (
	"bufio"
	"context"
	"io"
	"time"

	"github.com/cenkalti/backoff"
)

// pipeBaseName is the base of the well-known local endpoint name that
// DefaultName builds: on Windows a named pipe path, elsewhere a Unix
// domain socket path under the OS temp directory.
const pipeBaseName = "boothy_camera_sidecar"

// Conn is the duplex stream C2 drives. Exactly one goroutine may call
// WriteFrame at a time (the writer task); exactly one goroutine may call
// ReadLine at a time (the reader task). Both may be called concurrently
// with each other and with Close.
type Conn interface {
	// WriteFrame writes data verbatim (already newline-terminated) and
	// flushes it before returning.
	WriteFrame(data []byte) error
	// ReadLine blocks for the next newline-terminated line, stripped of
	// its trailing '\n'. It returns io.EOF when the peer closes cleanly.
	ReadLine() ([]byte, error)
	Close() error
}

type conn struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader
}

func newConn(rwc io.ReadWriteCloser) *conn {
	return &conn{rwc: rwc, reader: bufio.NewReader(rwc)}
}

func (c *conn) WriteFrame(data []byte) error {
	_, err := c.rwc.Write(data)
	return err
}

func (c *conn) ReadLine() ([]byte, error) {
	line, err := c.reader.ReadBytes('\n')
	if len(line) > 0 && line[len(line)-1] == '\n' {
		line = line[:len(line)-1]
	}
	if err != nil {
		if len(line) == 0 {
			return nil, err
		}
		// Partial line followed by EOF: surface what we have, caller
		// will see io.EOF on the next read.
		return line, nil
	}
	return line, nil
}

func (c *conn) Close() error {
	return c.rwc.Close()
}

// DialWithRetry attempts to open the named endpoint, retrying attempts
// times with a fixed delay between each, honoring ctx cancellation. It does
// not record diagnostics or log; callers (the supervisor) decide whether a
// given attempt run is diagnostic-worthy.
func DialWithRetry(ctx context.Context, name string, attempts int, delay time.Duration) (Conn, error) {
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1)),
		ctx,
	)

	var c Conn
	op := func() error {
		conn, err := dial(ctx, name)
		if err != nil {
			return err
		}
		c = conn
		return nil
	}
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return c, nil
}
