package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NoSecondaryLUTName is used in export filenames when no secondary LUT is set.
const NoSecondaryLUTName = "NoSecondLUT"

// DefaultOutputExtension is the container used for exports.
const DefaultOutputExtension = "mp4"

// VideoExtensions is the list of supported video file extensions.
var VideoExtensions = map[string]bool{
	".mkv":  true,
	".ts":   true,
	".avi":  true,
	".mp4":  true,
	".m4v":  true,
	".mpg":  true,
	".mpeg": true,
	".mov":  true,
	".mxf":  true,
	".webm": true,
	".m2ts": true,
}

// LUTExtensions lists the 3D LUT formats FFmpeg's lut3d filter reads.
var LUTExtensions = map[string]bool{
	".cube": true,
	".3dl":  true,
	".dat":  true,
	".m3d":  true,
	".csp":  true,
}

// IsVideoFile checks if the given path is a valid video file.
func IsVideoFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	ext := strings.ToLower(filepath.Ext(path))
	return VideoExtensions[ext]
}

// IsLUTFile reports whether path has a recognised LUT extension.
func IsLUTFile(path string) bool {
	return LUTExtensions[strings.ToLower(filepath.Ext(path))]
}

// GetFilename returns the filename from a path.
func GetFilename(path string) string {
	return filepath.Base(path)
}

// GetFileStem returns the filename without extension.
func GetFileStem(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

// EnsureDirectory creates a directory if it doesn't exist.
func EnsureDirectory(path string) error {
	return os.MkdirAll(path, 0755)
}

// DirectoryExists checks if a directory exists.
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ExportFileName builds the export filename for a source:
//
//	<source stem>_converted_<secondary LUT stem>_<opacity%>percent.<ext>
//
// An empty secondaryLUT is written as NoSecondLUT.
func ExportFileName(sourcePath, secondaryLUT string, opacity float64) string {
	lutName := NoSecondaryLUTName
	if secondaryLUT != "" {
		lutName = GetFileStem(secondaryLUT)
	}
	return fmt.Sprintf("%s_converted_%s_%dpercent.%s",
		GetFileStem(sourcePath), lutName, OpacityPercent(opacity), DefaultOutputExtension)
}

// ResolveExportPath returns the destination for sourcePath inside outputDir.
func ResolveExportPath(sourcePath, outputDir, secondaryLUT string, opacity float64) string {
	return filepath.Join(outputDir, ExportFileName(sourcePath, secondaryLUT, opacity))
}
