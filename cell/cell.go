// SPDX-License-Identifier: Unlicense OR MIT

// Package cell implements the drawing command recorder. A Painter
// records path and state commands into a Cell; the gpu package
// interprets recorded cells into GPU draws. Recording performs no
// tesselation and no validation beyond parameter clamping.
package cell

import (
	"github.com/pictorui/pictor/internal/ops"
)

// Cell owns a recorded command stream together with the state
// snapshots referenced by its fill and stroke directives. A Cell may
// be painted any number of times until it is Reset.
type Cell struct {
	ops    ops.Ops
	states []State
}

// Reset discards the recorded commands and state snapshots so the cell
// can be reused.
func (c *Cell) Reset() {
	c.ops.Reset()
	c.states = c.states[:0]
}

// Commands returns the serialized command stream.
func (c *Cell) Commands() *ops.Ops {
	return &c.ops
}

// States returns the state snapshot pool indexed by fill and stroke
// records.
func (c *Cell) States() []State {
	return c.states
}

// snapshot appends s to the pool and returns its index. A snapshot
// identical to the previous one shares its index.
func (c *Cell) snapshot(s State) uint32 {
	if n := len(c.states); n > 0 && c.states[n-1] == s {
		return uint32(n - 1)
	}
	c.states = append(c.states, s)
	return uint32(len(c.states) - 1)
}
