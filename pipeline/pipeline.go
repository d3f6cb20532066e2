// Package pipeline runs the single-threaded acquisition loop: pull a frame,
// detect board corners, gate the detection, accumulate, then solve and
// persist once the stream ends.
package pipeline

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"calibcam/artifact"
	"calibcam/board"
	"calibcam/calib"
	"calibcam/detect"
	"calibcam/gate"
	"calibcam/overlay"
	"calibcam/source"
)

// Global debug function for the pipeline package, injected by main.
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

// Sink persists a finished calibration. Satisfied by artifact.Writer.
type Sink interface {
	Write(res *calib.Result, b *board.Descriptor, sourceDesc string) (artifact.Paths, error)
}

// Config tunes one pipeline run.
type Config struct {
	Thresholds gate.Thresholds
	MinFrames  int
	Flags      calib.Flags

	// ShowPreview opens a live window with annotated frames. ESC or 'q'
	// ends acquisition early; whatever was accumulated still goes to the
	// solver.
	ShowPreview bool
}

// Deps are the collaborators of one run, injected so tests can substitute
// each stage.
type Deps struct {
	Source  source.Source
	Adapter detect.Adapter
	Invoker calib.Invoker
	Sink    Sink
	Board   *board.Descriptor
}

// Outcome reports what a completed run did.
type Outcome struct {
	FramesSeen     int
	FramesAccepted int
	Result         *calib.Result
	Paths          artifact.Paths
}

// Run executes the full pipeline. Frames are processed strictly one at a
// time; each frame is released before the next is pulled.
func Run(cfg Config, deps Deps) (*Outcome, error) {
	acc := calib.NewAccumulator(cfg.MinFrames)
	out := &Outcome{}

	var window *gocv.Window
	if cfg.ShowPreview {
		window = gocv.NewWindow("calibration")
		defer window.Close()
	}

	if err := acquire(cfg, deps, acc, out, window); err != nil {
		return nil, err
	}
	debugMsg("PIPELINE", fmt.Sprintf("acquisition done: %d frames seen, %d accepted (need %d)",
		out.FramesSeen, out.FramesAccepted, acc.MinFrames()))

	ds, err := acc.Finalize()
	if err != nil {
		return nil, err
	}

	res, err := deps.Invoker.Calibrate(ds, deps.Board, cfg.Flags)
	if err != nil {
		return nil, fmt.Errorf("calibration failed: %v", err)
	}
	out.Result = res
	debugMsg("PIPELINE", fmt.Sprintf("solved over %d views, rms %.4f px", res.FramesUsed, res.RMS))

	paths, err := deps.Sink.Write(res, deps.Board, deps.Source.Describe())
	if err != nil {
		return nil, fmt.Errorf("failed to persist calibration: %v", err)
	}
	out.Paths = paths
	return out, nil
}

// acquire drains the source into the accumulator. A detection failure on one
// frame skips that frame; a source failure aborts the run.
func acquire(cfg Config, deps Deps, acc *calib.Accumulator, out *Outcome, window *gocv.Window) error {
	for {
		frame, err := deps.Source.Next()
		if errors.Is(err, source.ErrEndOfStream) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("frame read failed: %v", err)
		}
		out.FramesSeen++

		res, err := deps.Adapter.Detect(frame.Image)
		if err != nil {
			debugMsg("PIPELINE", fmt.Sprintf("frame %d: detection failed: %v", frame.Index, err))
			frame.Close()
			continue
		}

		decision := gate.Evaluate(res, frame.Width, frame.Height, cfg.Thresholds)
		debugMsg("PIPELINE", fmt.Sprintf("frame %d: %s", frame.Index, decision))

		if decision.Accepted {
			if err := acc.Append(res, frame.Size()); err != nil {
				frame.Close()
				return err
			}
			out.FramesAccepted++
		}

		stop := false
		if window != nil {
			overlay.Annotate(&frame.Image, res, decision, cfg.Thresholds)
			window.IMShow(frame.Image)
			key := window.WaitKey(1)
			if key == 27 || key == 'q' {
				debugMsg("PIPELINE", "preview window requested stop")
				stop = true
			}
		}
		frame.Close()
		if stop {
			return nil
		}
	}
}
