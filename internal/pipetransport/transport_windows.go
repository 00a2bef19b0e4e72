//go:build windows

package pipetransport

import (
	"context"
	"os"

	"golang.org/x/sys/windows"
)

// DefaultName returns the well-known Windows named pipe path.
func DefaultName() string {
	return `\\.\pipe\` + pipeBaseName
}

func dial(ctx context.Context, name string) (Conn, error) {
	path, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		path,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(handle), name)
	return newConn(f), nil
}
