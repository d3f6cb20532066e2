// Package source produces the lazy frame sequence the pipeline pulls from,
// abstracting over stored video, live cameras, and still-image directories.
package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned by Open when the spec names a camera that cannot
// be opened, a path that does not exist, or a glob matching zero files.
var ErrUnavailable = errors.New("source unavailable")

// ErrEndOfStream is returned by Next when the source is exhausted.
var ErrEndOfStream = errors.New("end of stream")

// Global debug function for the source package, injected by main.
var debugMsgFunc func(component, message string)

// SetDebugFunction allows the main package to provide its debug function.
func SetDebugFunction(fn func(component, message string)) {
	debugMsgFunc = fn
}

func debugMsg(component, message string) {
	if debugMsgFunc != nil {
		debugMsgFunc(component, message)
	}
}

// Frame is one raw frame. The pixel Mat is owned by the receiver and must be
// released via Close before the next frame is requested; no frame survives
// its processing step.
type Frame struct {
	Image  gocv.Mat
	Width  int
	Height int
	Index  int    // position in the original stream
	Path   string // still-image variant only

	hasMat bool
}

// newFrame wraps a freshly read Mat.
func newFrame(img gocv.Mat, index int, path string) Frame {
	return Frame{
		Image:  img,
		Width:  img.Cols(),
		Height: img.Rows(),
		Index:  index,
		Path:   path,
		hasMat: true,
	}
}

// Size returns the frame dimensions.
func (f *Frame) Size() image.Point { return image.Pt(f.Width, f.Height) }

// Close releases the frame's pixel data. Safe on zero-value Frames, which
// tests construct without a Mat.
func (f *Frame) Close() {
	if f.hasMat {
		f.Image.Close()
		f.hasMat = false
	}
}

// Options bound how much of a long source is processed.
type Options struct {
	FrameStep int // process every Nth frame of a video source; <=1 means every frame
	MaxFrames int // hard cap on frames handed out; <=0 means unbounded
}

// Source is a pull-based finite-or-unbounded frame producer.
type Source interface {
	// Next returns the next frame or ErrEndOfStream.
	Next() (Frame, error)
	// Describe names the source for logging and artifacts.
	Describe() string
	Close() error
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true,
	".tif": true, ".tiff": true, ".webp": true,
	".pbm": true, ".pgm": true, ".ppm": true,
}

// IsImagePath reports whether the path has a readable raster image extension.
func IsImagePath(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Open resolves a source spec and opens the matching variant. The spec is a
// camera index ("0"), a video or image file path, a directory of images, or a
// glob pattern.
func Open(spec string, opts Options) (Source, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty source spec", ErrUnavailable)
	}
	spec = expandHome(spec)

	if idx, err := strconv.Atoi(spec); err == nil {
		return openCamera(idx, opts)
	}

	if strings.ContainsAny(spec, "*?[") {
		matches, err := filepath.Glob(spec)
		if err != nil {
			return nil, fmt.Errorf("%w: bad glob %q: %v", ErrUnavailable, spec, err)
		}
		return newImageSource(matches, spec, opts)
	}

	spec = fixPath(spec)
	info, err := os.Stat(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %q does not exist", ErrUnavailable, spec)
	}
	if info.IsDir() {
		files, err := listImages(spec, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return newImageSource(files, spec, opts)
	}
	if IsImagePath(spec) {
		return newImageSource([]string{spec}, spec, opts)
	}
	return openVideo(spec, opts)
}

// fixPath tolerates a stray space embedded before a file extension (e.g.
// "clip .MOV"): when the literal path is missing but the corrected variant
// exists, the corrected path is substituted and the substitution reported.
func fixPath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	if !strings.Contains(path, " .") {
		return path
	}
	fixed := strings.ReplaceAll(path, " .", ".")
	if _, err := os.Stat(fixed); err == nil {
		debugMsg("SOURCE", fmt.Sprintf("corrected source path: %q -> %q", path, fixed))
		return fixed
	}
	return path
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// listImages collects the image files under root in lexicographic path
// order. filepath.WalkDir already visits entries in sorted order.
func listImages(root string, recursive bool) ([]string, error) {
	var files []string
	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && IsImagePath(e.Name()) {
				files = append(files, filepath.Join(root, e.Name()))
			}
		}
		return files, nil
	}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImagePath(path) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// ListImages exposes the directory scan for the batch evaluator.
func ListImages(root string, recursive bool) ([]string, error) {
	return listImages(root, recursive)
}
