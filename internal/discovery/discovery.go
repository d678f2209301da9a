// Package discovery locates the engine executables and the input files a
// batch is built from.
package discovery

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lgerrors "github.com/five82/lutgrade/internal/errors"
	"github.com/five82/lutgrade/internal/util"
)

// DiscoveryLogger defines the interface for discovery logging.
type DiscoveryLogger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// DefaultSearchDirs are checked, in order, after PATH when an executable
// has no configured location.
var DefaultSearchDirs = []string{
	"/opt/homebrew/bin",
	"/usr/local/bin",
	"/opt/local/bin",
	"/usr/bin",
}

// Resolver finds executables by name. Successful lookups are cached; a
// failed lookup is attempted again on the next call.
type Resolver struct {
	configured map[string]string
	searchDirs []string
	lookPath   func(string) (string, error)

	mu    sync.Mutex
	cache map[string]string
}

// NewResolver creates a resolver. configured maps executable names to
// explicit paths, which take precedence over any search.
func NewResolver(configured map[string]string) *Resolver {
	return &Resolver{
		configured: configured,
		searchDirs: DefaultSearchDirs,
		lookPath:   exec.LookPath,
		cache:      make(map[string]string),
	}
}

// Resolve returns the path of the named executable.
func (r *Resolver) Resolve(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if path, ok := r.cache[name]; ok {
		return path, nil
	}

	if path := r.configured[name]; path != "" {
		if !isExecutable(path) {
			return "", lgerrors.NewExecutableUnavailableError(name,
				fmt.Errorf("configured path %s is not an executable file", path))
		}
		r.cache[name] = path
		return path, nil
	}

	if path, err := r.lookPath(name); err == nil {
		r.cache[name] = path
		return path, nil
	}

	for _, dir := range r.searchDirs {
		path := filepath.Join(dir, name)
		if isExecutable(path) {
			r.cache[name] = path
			return path, nil
		}
	}

	return "", lgerrors.NewExecutableUnavailableError(name, exec.ErrNotFound)
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}

// DiscoveryResult contains the results of file discovery with metadata.
type DiscoveryResult struct {
	Files        []string
	SkippedCount int
}

// FindVideoFiles finds video files in the given directory.
// Returns files sorted alphabetically by filename.
func FindVideoFiles(inputDir string) ([]string, error) {
	result, err := FindVideoFilesWithLogging(inputDir, nil)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// FindVideoFilesWithLogging finds video files and logs discovery progress.
// Logs the first 5 files found plus a count summary.
func FindVideoFilesWithLogging(inputDir string, logger DiscoveryLogger) (*DiscoveryResult, error) {
	result, err := scan(inputDir, util.IsVideoFile)
	if err != nil {
		return nil, err
	}
	if len(result.Files) == 0 {
		return nil, lgerrors.NewNoFilesFoundError(inputDir)
	}

	if logger != nil {
		logDiscoveredFiles(result.Files, logger)
	}
	return result, nil
}

// FindLUTFiles returns the LUT files in dir, sorted by name. An empty
// result is not an error.
func FindLUTFiles(dir string) ([]string, error) {
	result, err := scan(dir, util.IsLUTFile)
	if err != nil {
		return nil, err
	}
	return result.Files, nil
}

// ExpandInputs turns a mix of files and directories into a sorted list of
// video files. Directories contribute their video files; files are taken as
// given.
func ExpandInputs(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, lgerrors.NewPathError(fmt.Sprintf("input does not exist: %s", p))
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := FindVideoFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		return nil, lgerrors.NewNoFilesFoundError(strings.Join(paths, ", "))
	}
	return files, nil
}

func scan(dir string, match func(string) bool) (*DiscoveryResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, lgerrors.NewPathError(fmt.Sprintf("directory does not exist: %s", dir))
	}
	if !info.IsDir() {
		return nil, lgerrors.NewPathError(fmt.Sprintf("%s is not a directory", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, lgerrors.NewIOError(fmt.Sprintf("cannot read directory %s", dir), err)
	}

	result := &DiscoveryResult{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		fullPath := filepath.Join(dir, name)
		if match(fullPath) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})

	return result, nil
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(files []string, logger DiscoveryLogger) {
	logger.Info("found video files", "count", len(files))

	maxToLog := min(5, len(files))
	for i := range maxToLog {
		logger.Debug("video file", "name", filepath.Base(files[i]))
	}

	if len(files) > 5 {
		logger.Debug("more video files", "count", len(files)-5)
	}
}
