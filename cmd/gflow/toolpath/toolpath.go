// Package toolpath renders an emitted (command, fields[]) stream as an SVG
// polyline preview of the G0/G1/G2/G3 moves it contains. It is a host-side
// consumer of the pipeline's output: it knows nothing about lexing, parsing
// or evaluation, only about the flattened tuples the reference driver feeds
// it, exercising the "meaning is the host's job" boundary spec.md §1 draws.
package toolpath

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ajstarks/svgo"
)

// Renderer accumulates G0/G1/G2/G3 moves into an SVG canvas, tracking
// current position the way a real controller would: X/Y fields are
// absolute targets, and an axis a move leaves out keeps its current value.
type Renderer struct {
	canvas        *svg.SVG
	width, height int
	scale         float64
	x, y          float64
	started       bool
}

// New creates a Renderer that writes an SVG document of the given pixel
// size to w, with scale pixels per G-code unit.
func New(w io.Writer, width, height int, scale float64) *Renderer {
	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:white")
	return &Renderer{canvas: canvas, width: width, height: height, scale: scale}
}

// Close ends the SVG document. It must be called exactly once, after the
// last Feed call.
func (r *Renderer) Close() {
	r.canvas.End()
}

// Feed inspects one flattened command and draws it if it is a motion
// command (G0/G1/G2/G3); any other command is ignored, matching the
// driver's role as one possible consumer among many.
func (r *Renderer) Feed(command string, fields []string) {
	switch strings.ToUpper(command) {
	case "G0", "G1":
		x, y, okX, okY := r.targetXY(fields)
		if !r.started {
			r.x, r.y = coalesce(x, okX, r.x), coalesce(y, okY, r.y)
			r.started = true
			return
		}
		nx, ny := coalesce(x, okX, r.x), coalesce(y, okY, r.y)
		style := "stroke:black;stroke-width:1;fill:none"
		if strings.ToUpper(command) == "G0" {
			style = "stroke:lightgray;stroke-width:1;stroke-dasharray:4,2;fill:none"
		}
		r.line(r.x, r.y, nx, ny, style)
		r.x, r.y = nx, ny
	case "G2", "G3":
		r.arc(fields, strings.ToUpper(command) == "G2")
	}
}

// targetXY reads the X/Y fields of a move command, leaving the current
// position unchanged on any axis that wasn't specified (G-code's modal
// positioning contract).
func (r *Renderer) targetXY(fields []string) (x, y float64, okX, okY bool) {
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(f[1:], 64)
		if err != nil {
			continue
		}
		switch f[0] {
		case 'X', 'x':
			x, okX = v, true
		case 'Y', 'y':
			y, okY = v, true
		}
	}
	return
}

func (r *Renderer) arcCenter(fields []string) (i, j float64, okI, okJ bool) {
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		v, err := strconv.ParseFloat(f[1:], 64)
		if err != nil {
			continue
		}
		switch f[0] {
		case 'I', 'i':
			i, okI = v, true
		case 'J', 'j':
			j, okJ = v, true
		}
	}
	return
}

// arc draws a G2 (clockwise) or G3 (counter-clockwise) move as a short
// polyline approximation around the I/J-offset center, falling back to a
// straight line when no center offset was given.
func (r *Renderer) arc(fields []string, clockwise bool) {
	x, y, okX, okY := r.targetXY(fields)
	nx, ny := coalesce(x, okX, r.x), coalesce(y, okY, r.y)
	i, j, okI, okJ := r.arcCenter(fields)
	if !r.started {
		r.x, r.y = nx, ny
		r.started = true
		return
	}
	if !okI && !okJ {
		r.line(r.x, r.y, nx, ny, "stroke:black;stroke-width:1;fill:none")
		r.x, r.y = nx, ny
		return
	}

	cx, cy := r.x+i, r.y+j
	radius := math.Hypot(r.x-cx, r.y-cy)
	startAngle := math.Atan2(r.y-cy, r.x-cx)
	endAngle := math.Atan2(ny-cy, nx-cx)

	sweep := endAngle - startAngle
	if clockwise {
		for sweep > 0 {
			sweep -= 2 * math.Pi
		}
	} else {
		for sweep < 0 {
			sweep += 2 * math.Pi
		}
	}

	const segments = 24
	px, py := r.x, r.y
	for s := 1; s <= segments; s++ {
		angle := startAngle + sweep*float64(s)/segments
		qx := cx + radius*math.Cos(angle)
		qy := cy + radius*math.Sin(angle)
		r.line(px, py, qx, qy, "stroke:black;stroke-width:1;fill:none")
		px, py = qx, qy
	}
	r.x, r.y = nx, ny
}

func (r *Renderer) line(x1, y1, x2, y2 float64, style string) {
	r.canvas.Line(r.toPx(x1), r.toPxY(y1), r.toPx(x2), r.toPxY(y2), style)
}

func (r *Renderer) toPx(v float64) int { return int(math.Round(v * r.scale)) }

// toPxY flips Y since G-code's Y grows upward but SVG's grows downward.
func (r *Renderer) toPxY(v float64) int { return r.height - int(math.Round(v*r.scale)) }

func coalesce(v float64, ok bool, fallback float64) float64 {
	if ok {
		return v
	}
	return fallback
}

// String renders a short diagnostic summary, useful for -svg's companion
// log line in the reference driver.
func (r *Renderer) String() string {
	return fmt.Sprintf("toolpath: %dx%d canvas at %gpx/unit, tool at (%.3f, %.3f)", r.width, r.height, r.scale, r.x, r.y)
}
