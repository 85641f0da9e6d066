package fonts

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"
)

// DefaultFallbacks are tried in order after the embedded fonts.
var DefaultFallbacks = []string{"arial.ttf", "times.ttf", "DejaVuSans.ttf", "LiberationSans-Regular.ttf"}

// SystemDirs lists the usual font directories for the running OS.
func SystemDirs() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{"/System/Library/Fonts", "/Library/Fonts", filepath.Join(home, "Library", "Fonts")}
	case "windows":
		windir := os.Getenv("WINDIR")
		if windir == "" {
			windir = `C:\Windows`
		}
		return []string{filepath.Join(windir, "Fonts")}
	}
	return []string{
		"/usr/share/fonts",
		"/usr/local/share/fonts",
		filepath.Join(home, ".fonts"),
		filepath.Join(home, ".local", "share", "fonts"),
	}
}

// Locator finds font files by name in a set of directories. The
// directories are indexed on first use.
type Locator struct {
	Dirs []string

	indexed bool
	paths   []string
	names   []string // lower-case base names, parallel to paths
}

func NewLocator(dirs ...string) *Locator {
	return &Locator{Dirs: dirs}
}

// Find returns the path of the font file called name. An exact
// (case-insensitive) base name match wins; otherwise the best fuzzy match
// on the file stem is used.
func (l *Locator) Find(name string) (string, bool) {
	if filepath.IsAbs(name) {
		if st, err := os.Stat(name); err == nil && st.Mode().IsRegular() {
			return name, true
		}
		return "", false
	}
	l.index()
	want := strings.ToLower(name)
	for i, n := range l.names {
		if n == want {
			return l.paths[i], true
		}
	}
	stem := strings.TrimSuffix(want, filepath.Ext(want))
	if stem == "" || len(l.names) == 0 {
		return "", false
	}
	matches := fuzzy.Find(stem, l.names)
	if len(matches) == 0 {
		return "", false
	}
	return l.paths[matches[0].Index], true
}

func (l *Locator) index() {
	if l.indexed {
		return
	}
	l.indexed = true
	for _, dir := range l.Dirs {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".ttf", ".otf":
				l.paths = append(l.paths, path)
			}
			return nil
		})
	}
	sort.Strings(l.paths)
	l.names = make([]string, len(l.paths))
	for i, p := range l.paths {
		l.names[i] = strings.ToLower(filepath.Base(p))
	}
}
