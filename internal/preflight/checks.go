package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"glovecap/internal/serialport"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDataRootLock reports whether another collector holds the data root.
func CheckDataRootLock(lockPath string) Result {
	const name = "Data root lock"
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", lockPath, err)}
	}
	if !ok {
		return Result{Name: name, Detail: "another glovecap session is collecting into this data root"}
	}
	_ = lock.Unlock()
	return Result{Name: name, Passed: true, Detail: "free"}
}

// CheckProgressCache verifies the progress cache parses. A missing cache is
// fine; a corrupt one is rebuilt on open, so the check is optional.
func CheckProgressCache(path string) Result {
	const name = "Progress cache"
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: "not created yet"}
	}
	if err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	var doc struct {
		TotalEpisodes int `json:"total_episodes"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Result{Name: name, Optional: true, Detail: "unreadable; it will be rebuilt from episode files"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d episodes recorded", doc.TotalEpisodes)}
}

// CheckSerialPort verifies the configured port, or the first discovered
// candidate, exists and can be opened for reading and writing. A missing
// glove is optional: collect --wait can wait for it.
func CheckSerialPort(_ context.Context, port string) Result {
	const name = "Serial port"
	port = strings.TrimSpace(port)
	if port == "" {
		found, err := serialport.Discover()
		if err != nil {
			return Result{Name: name, Optional: true, Detail: "no glove detected (plug it in or set serial.port)"}
		}
		port = found
	}
	if _, err := os.Stat(port); err != nil {
		return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (error: %v)", port, err)}
	}
	if err := unix.Access(port, unix.R_OK|unix.W_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v; add your user to the dialout group)", port, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", port)}
}
