package storage

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"glovecap/internal/config"
	"glovecap/internal/fileutil"
)

// Format identifies a persisted representation.
type Format string

const (
	FormatCSV       Format = "csv"
	FormatContainer Format = "sqlite"
)

// Formats lists every format in write order.
var Formats = []Format{FormatCSV, FormatContainer}

// Ext returns the file extension without the dot.
func (f Format) Ext() string { return string(f) }

// Extensions returns the extensions of every format.
func Extensions() []string {
	out := make([]string, 0, len(Formats))
	for _, f := range Formats {
		out = append(out, f.Ext())
	}
	return out
}

// FilePrefix starts every episode file name.
const FilePrefix = "episode_"

const stampLayout = "20060102_150405"

// EpisodeDir returns <root>/<class>/<type> with NFC-normalized labels.
func EpisodeDir(root, class, episodeType string) string {
	return filepath.Join(root, config.NormalizeLabel(class), config.NormalizeLabel(episodeType))
}

// BaseName returns the extension-less episode file name for a start time.
func BaseName(class, episodeType string, started time.Time) string {
	return fmt.Sprintf("%s%s_%s_%s", FilePrefix, started.Format(stampLayout),
		config.NormalizeLabel(class), config.NormalizeLabel(episodeType))
}

// EpisodePaths resolves one path per format sharing a base name. When any of
// them already exists (two chained episodes inside one second) a millisecond
// suffix is appended, then a counter if that collides too.
func EpisodePaths(root, class, episodeType string, started time.Time, formats []Format) map[Format]string {
	dir := EpisodeDir(root, class, episodeType)
	base := BaseName(class, episodeType, started)

	candidates := []string{base, fmt.Sprintf("%s_%03d", base, started.Nanosecond()/int(time.Millisecond))}
	for i := 1; ; i++ {
		var name string
		if i <= len(candidates) {
			name = candidates[i-1]
		} else {
			name = fmt.Sprintf("%s_%d", candidates[1], i-len(candidates))
		}
		paths := make(map[Format]string, len(formats))
		taken := false
		for _, f := range formats {
			p := filepath.Join(dir, name+"."+f.Ext())
			if fileutil.Exists(p) {
				taken = true
			}
			paths[f] = p
		}
		if !taken {
			return paths
		}
	}
}

// IsEpisodeFile reports whether name looks like an episode file of format f.
func IsEpisodeFile(name string, f Format) bool {
	return strings.HasPrefix(name, FilePrefix) && strings.HasSuffix(name, "."+f.Ext())
}

// FormatOf maps a file name to its format.
func FormatOf(name string) (Format, bool) {
	for _, f := range Formats {
		if strings.HasSuffix(strings.ToLower(name), "."+f.Ext()) {
			return f, true
		}
	}
	return "", false
}
