// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"runtime"

	"github.com/pictorui/pictor/cell"
)

// RenderLoop runs a Canvas on a dedicated render thread. The worker
// owns the device and canvas for its lifetime; producers submit frames
// of recorded cells and must not touch a submitted cell again until the
// ack channel signals that the recording was consumed.
type RenderLoop struct {
	drawing bool
	err     error

	frames  chan loopFrame
	results chan error
	ack     chan struct{}
	stop    chan struct{}
	stopped chan struct{}
}

type loopFrame struct {
	width, height float32
	pixelRatio    float32
	cells         []Submission
}

// Submission is one cell to paint, with its nesting context.
type Submission struct {
	Cell *cell.Cell
	Base Base
}

// Submit wraps a cell with the neutral context.
func Submit(c *cell.Cell) Submission {
	return Submission{Cell: c, Base: NoBase()}
}

// NewRenderLoop starts the render thread. The canvas constructor runs
// on the locked thread so device resources are created where they will
// be used; its error is returned here.
func NewRenderLoop(newCanvas func() (*Canvas, error)) (*RenderLoop, error) {
	l := &RenderLoop{
		frames:  make(chan loopFrame),
		results: make(chan error),
		// Ack is buffered so GPU commands can be issued after
		// ack'ing the frame.
		ack:     make(chan struct{}, 1),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	if err := l.renderLoop(newCanvas); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *RenderLoop) renderLoop(newCanvas func() (*Canvas, error)) error {
	// Device operations must happen on a single OS thread, so pass
	// the initialization result through a channel.
	initErr := make(chan error)
	go func() {
		defer close(l.stopped)
		runtime.LockOSThread()
		// Don't UnlockOSThread to avoid reuse by the Go runtime.

		canvas, err := newCanvas()
		if err != nil {
			initErr <- err
			return
		}
		defer canvas.Release()
		initErr <- nil
	loop:
		for {
			select {
			case frame := <-l.frames:
				canvas.BeginFrame(frame.width, frame.height, frame.pixelRatio)
				for _, s := range frame.cells {
					canvas.PaintWith(s.Cell, s.Base)
				}
				// Signal that we're done with the recordings.
				l.ack <- struct{}{}
				canvas.FinishFrame()
				l.results <- nil
			case <-l.stop:
				break loop
			}
		}
	}()
	return <-initErr
}

// Release stops the render thread. An in-progress frame is allowed to
// finish.
func (l *RenderLoop) Release() {
	l.Flush()
	close(l.stop)
	<-l.stopped
	l.stop = nil
}

// Flush waits for an in-flight frame and returns the sticky error.
func (l *RenderLoop) Flush() error {
	if l.drawing {
		l.setErr(<-l.results)
		l.drawing = false
	}
	return l.err
}

// Draw submits one frame of cells. The returned channel signals when
// the recordings are no longer being accessed and may be reused.
func (l *RenderLoop) Draw(width, height, pixelRatio float32, cells []Submission) <-chan struct{} {
	if l.err != nil {
		l.ack <- struct{}{}
		return l.ack
	}
	l.Flush()
	l.frames <- loopFrame{width: width, height: height, pixelRatio: pixelRatio, cells: cells}
	l.drawing = true
	return l.ack
}

func (l *RenderLoop) setErr(err error) {
	if l.err == nil {
		l.err = err
	}
}
