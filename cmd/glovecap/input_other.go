//go:build !linux

package main

import (
	"errors"
	"os"
)

func newKeystrokePoller(*os.File) (*chanPoller, error) {
	return nil, errors.New("keystroke input is only supported on linux")
}
