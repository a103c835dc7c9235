// SPDX-License-Identifier: Unlicense OR MIT

package gpu

import (
	"errors"
	"testing"
	"time"

	"github.com/pictorui/pictor/cell"
	"github.com/pictorui/pictor/f32"
	"github.com/pictorui/pictor/gpu/headless"
	"github.com/pictorui/pictor/internal/f32color"
)

func TestRenderLoopFrame(t *testing.T) {
	dev := headless.NewDevice(100, 100)
	loop, err := NewRenderLoop(func() (*Canvas, error) {
		return NewCanvas(dev)
	})
	if err != nil {
		t.Fatalf("NewRenderLoop: %v", err)
	}
	defer loop.Release()

	var rec cell.Cell
	p := cell.NewPainter(&rec)
	p.BeginPath()
	p.Rect(f32.Rectangle{Min: f32.Pt(10, 10), Max: f32.Pt(50, 50)})
	p.SetFillColor(f32color.RGBA{R: 1, A: 1})
	p.Fill()

	ack := loop.Draw(100, 100, 1, []Submission{Submit(&rec)})
	select {
	case <-ack:
	case <-time.After(5 * time.Second):
		t.Fatal("frame was not acknowledged")
	}
	if err := loop.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(dev.Draws()) == 0 {
		t.Error("render thread issued no draws")
	}
}

func TestRenderLoopConstructorError(t *testing.T) {
	wantErr := errors.New("no device")
	_, err := NewRenderLoop(func() (*Canvas, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
}
