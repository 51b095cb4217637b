//go:build windows

package ui

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/windows"
)

func OpenTTY() (io.ReadWriteCloser, error) {
	handle, err := windows.GetStdHandle(windows.STD_INPUT_HANDLE)
	if err != nil {
		return nil, err
	}

	fd := os.NewFile(uintptr(handle), "conin$")
	if fd == nil {
		return nil, errors.New("failed to create file from console handle")
	}

	return fd, nil
}
