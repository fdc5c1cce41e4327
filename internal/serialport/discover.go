package serialport

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// namePatterns are substrings of device names that identify USB serial
// adapters and native-USB microcontrollers. Windows-style COM names match by
// prefix instead.
var namePatterns = []string{"usbmodem", "usbserial", "ttyusb", "ttyacm"}

// macOSFallbacks are probed when the /dev scan finds nothing.
var macOSFallbacks = func() []string {
	out := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		out = append(out, fmt.Sprintf("/dev/cu.usbmodem%d", i))
	}
	return out
}()

// MatchesPattern reports whether a device path or name looks like a glove port.
func MatchesPattern(name string) bool {
	base := strings.ToLower(filepath.Base(name))
	if strings.HasPrefix(base, "com") {
		return true
	}
	for _, p := range namePatterns {
		if strings.Contains(base, p) {
			return true
		}
	}
	return false
}

// ScanDir lists candidate ports in dir, sorted.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if MatchesPattern(e.Name()) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(out)
	return out, nil
}

// Candidates lists every discoverable port, /dev first then the macOS fallbacks.
func Candidates() ([]string, error) {
	found, err := ScanDir("/dev")
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found, nil
	}
	for _, p := range macOSFallbacks {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found, nil
}

// Discover returns the first candidate port.
func Discover() (string, error) {
	found, err := Candidates()
	if err != nil {
		return "", &ConnectionError{Op: "discover", Err: err}
	}
	if len(found) == 0 {
		return "", &ConnectionError{Op: "discover", Err: ErrPortNotFound}
	}
	return found[0], nil
}
