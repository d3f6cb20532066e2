package detect

import (
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"calibcam/board"
)

// NewAdapter probes the available detector backends once and returns the best
// one. Backends are tried in preference order: the marker-interpolating
// generation first, then the plain chessboard grid finder. When neither
// survives its probe the vision library build is unusable and ErrUnsupported
// is returned.
func NewAdapter(b *board.Descriptor, p Params) (Adapter, *BackendInfo, error) {
	if err := p.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid detector params: %w", err)
	}

	debugMsg("DETECT", "probing available board detector backends...")

	candidates := []func() Adapter{
		func() Adapter { return newArucoBackend(b, p) },
		func() Adapter { return newChessboardBackend(b, p) },
	}

	for _, build := range candidates {
		start := time.Now()
		backend, ok := probeBackend(build)
		if !ok {
			continue
		}
		info := &BackendInfo{Name: backend.Name(), ProbeTime: time.Since(start)}
		debugMsg("DETECT", fmt.Sprintf("selected %s backend (probe %v)", info.Name, info.ProbeTime))
		return backend, info, nil
	}

	return nil, nil, ErrUnsupported
}

// probeBackend constructs a backend and runs one test detection against a
// synthetic frame to make sure the underlying library calls really work.
// Construction or detection blowing up at the binding layer counts as the
// backend being unavailable, not as a run failure.
func probeBackend(build func() Adapter) (backend Adapter, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			debugMsg("DETECT", fmt.Sprintf("backend probe panicked: %v", r))
			if backend != nil {
				backend.Close()
				backend = nil
			}
			ok = false
		}
	}()

	backend = build()

	probe := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC1)
	defer probe.Close()

	if _, err := backend.Detect(probe); err != nil {
		debugMsg("DETECT", fmt.Sprintf("%s probe detection failed: %v", backend.Name(), err))
		backend.Close()
		return nil, false
	}
	return backend, true
}
