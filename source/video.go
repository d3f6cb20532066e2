package source

import (
	"fmt"

	"gocv.io/x/gocv"
)

// videoSource reads a stored video file or a live camera in strict temporal
// order. Reads block until a frame is available or the stream ends; a hung
// camera stalls the run, which is acceptable for an operator-attended tool.
type videoSource struct {
	cap   *gocv.VideoCapture
	desc  string
	step  int
	max   int
	index int // raw frame index in the stream
	given int // frames handed out
}

func openCamera(index int, opts Options) (Source, error) {
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil || !cap.IsOpened() {
		if cap != nil {
			cap.Close()
		}
		return nil, fmt.Errorf("%w: cannot open camera %d", ErrUnavailable, index)
	}
	debugMsg("SOURCE", fmt.Sprintf("opened camera %d", index))
	return newVideoSource(cap, fmt.Sprintf("camera:%d", index), opts), nil
}

func openVideo(path string, opts Options) (Source, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil || !cap.IsOpened() {
		if cap != nil {
			cap.Close()
		}
		return nil, fmt.Errorf("%w: cannot open video %q", ErrUnavailable, path)
	}
	if total := int(cap.Get(gocv.VideoCaptureFrameCount)); total > 0 {
		debugMsg("SOURCE", fmt.Sprintf("opened video %q (%d frames)", path, total))
	} else {
		debugMsg("SOURCE", fmt.Sprintf("opened video %q", path))
	}
	return newVideoSource(cap, path, opts), nil
}

func newVideoSource(cap *gocv.VideoCapture, desc string, opts Options) *videoSource {
	step := opts.FrameStep
	if step < 1 {
		step = 1
	}
	return &videoSource{cap: cap, desc: desc, step: step, max: opts.MaxFrames}
}

func (s *videoSource) Next() (Frame, error) {
	if s.max > 0 && s.given >= s.max {
		return Frame{}, ErrEndOfStream
	}
	img := gocv.NewMat()
	for {
		if ok := s.cap.Read(&img); !ok || img.Empty() {
			img.Close()
			return Frame{}, ErrEndOfStream
		}
		idx := s.index
		s.index++
		if s.step > 1 && idx%s.step != 0 {
			continue
		}
		s.given++
		return newFrame(img, idx, ""), nil
	}
}

func (s *videoSource) Describe() string { return s.desc }

func (s *videoSource) Close() error {
	return s.cap.Close()
}
