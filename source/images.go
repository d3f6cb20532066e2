package source

import (
	"fmt"

	"gocv.io/x/gocv"
)

// imageSource walks a fixed list of still-image paths in lexicographic
// order. Unreadable files are skipped with a warning rather than aborting the
// batch.
type imageSource struct {
	paths []string
	desc  string
	max   int
	pos   int
	given int
}

func newImageSource(paths []string, desc string, opts Options) (*imageSource, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images match %q", ErrUnavailable, desc)
	}
	debugMsg("SOURCE", fmt.Sprintf("image list source: %d files from %q", len(paths), desc))
	return &imageSource{paths: paths, desc: desc, max: opts.MaxFrames}, nil
}

func (s *imageSource) Next() (Frame, error) {
	for {
		// The cap counts decoded frames; skipped unreadable files do not
		// consume the budget.
		if s.max > 0 && s.given >= s.max {
			return Frame{}, ErrEndOfStream
		}
		if s.pos >= len(s.paths) {
			return Frame{}, ErrEndOfStream
		}
		path := s.paths[s.pos]
		idx := s.pos
		s.pos++

		img := gocv.IMRead(path, gocv.IMReadColor)
		if img.Empty() {
			img.Close()
			debugMsg("SOURCE", fmt.Sprintf("skipping unreadable image %q", path))
			continue
		}
		s.given++
		return newFrame(img, idx, path), nil
	}
}

func (s *imageSource) Describe() string { return s.desc }

func (s *imageSource) Close() error { return nil }
