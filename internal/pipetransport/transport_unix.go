//go:build !windows

package pipetransport

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

// DefaultName returns the local socket path used when no pipe name is
// configured: a Unix domain socket under the OS temp directory, the
// non-Windows equivalent of the named pipe.
func DefaultName() string {
	return filepath.Join(os.TempDir(), pipeBaseName+".sock")
}

func dial(ctx context.Context, name string) (Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "unix", name)
	if err != nil {
		return nil, err
	}
	return newConn(c), nil
}
