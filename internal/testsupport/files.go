package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// TouchEpisodes creates n placeholder episode files named with the given
// extension under root/class/episodeType and returns their paths. Contents
// are irrelevant to progress scans.
func TouchEpisodes(t testing.TB, root, class, episodeType, ext string, n int) []string {
	t.Helper()

	dir := filepath.Join(root, class, episodeType)
	paths := make([]string, 0, n)
	for i := range n {
		name := "episode_20250101_0000" + twoDigits(i) + "_" + class + "_" + episodeType + ext
		path := filepath.Join(dir, name)
		WriteFile(t, path, 16)
		paths = append(paths, path)
	}
	return paths
}

func twoDigits(i int) string {
	return string([]byte{byte('0' + (i/10)%10), byte('0' + i%10)})
}
