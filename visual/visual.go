// Package visual is the optional SDL2 window that mirrors a running
// simulation's memory-segment map and per-process state, grounded on
// the original implementation's video-surface rendering pattern.
package visual

import (
	"fmt"
	"image"
	"image/color"

	"github.com/veandco/go-sdl2/sdl"
	ximage "golang.org/x/image/draw"

	"github.com/oscore/ossim/memory"
	"github.com/oscore/ossim/pcb"
	"github.com/oscore/ossim/sim"
)

// surfaceImage adapts an sdl.Surface's pixel buffer to the
// golang.org/x/image/draw.Image interface, the same direct-poke
// approach vcs_main.go's fastImage uses to avoid a per-pixel
// color.Color.Convert call.
type surfaceImage struct {
	surface *sdl.Surface
	pixels  []byte
}

func (s *surfaceImage) Set(x, y int, c color.Color) {
	r, g, b, a := c.RGBA()
	i := int32(y)*s.surface.Pitch + int32(x)*int32(s.surface.Format.BytesPerPixel)
	s.pixels[i+0] = byte(b >> 8)
	s.pixels[i+1] = byte(g >> 8)
	s.pixels[i+2] = byte(r >> 8)
	s.pixels[i+3] = byte(a >> 8)
}

func (s *surfaceImage) ColorModel() color.Model { return s.surface.ColorModel() }
func (s *surfaceImage) Bounds() image.Rectangle { return s.surface.Bounds() }

// Window renders one simulation's memory map as a horizontal strip of
// colored segments, with a row of per-process state squares beneath it.
// All SDL calls are funneled through sdl.Do so Window can be driven from
// a goroutine other than the one running sdl.Main.
type Window struct {
	win      *sdl.Window
	img      *surfaceImage
	width    int
	height   int
	capacity int
}

// NewSDLWindow opens a width x height window and returns it as a
// sim.Renderer. capacity is the memory space's total size, used to scale
// segment widths proportionally. Must be called from inside the function
// passed to sdl.Main.
func NewSDLWindow(width, height, capacity int) (sim.Renderer, error) {
	w := &Window{width: width, height: height, capacity: capacity}
	var initErr error
	done := make(chan struct{})

	sdl.Do(func() {
		defer close(done)
		if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
			initErr = fmt.Errorf("sdl init: %w", err)
			return
		}
		win, err := sdl.CreateWindow("ossim", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
			int32(width), int32(height), sdl.WINDOW_SHOWN)
		if err != nil {
			initErr = fmt.Errorf("create window: %w", err)
			return
		}
		surface, err := win.GetSurface()
		if err != nil {
			initErr = fmt.Errorf("get surface: %w", err)
			return
		}
		w.win = win
		w.img = &surfaceImage{surface: surface, pixels: surface.Pixels()}
	})
	<-done
	if initErr != nil {
		return nil, initErr
	}
	return w, nil
}

// ShowMemory redraws the segment strip: one rectangle per segment,
// proportional to its share of capacity, composited onto the window
// surface via golang.org/x/image/draw.
func (w *Window) ShowMemory(segs []memory.SegmentView) {
	sdl.Do(func() {
		full := image.Rect(0, 0, w.width, w.height-24)
		ximage.Draw(w.img, full, &image.Uniform{C: color.RGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}}, image.Point{}, ximage.Src)

		for _, seg := range segs {
			x := seg.PhysicalAddress * w.width / w.capacity
			width := seg.Size * w.width / w.capacity
			if width < 1 {
				width = 1
			}
			rect := image.Rect(x, 0, x+width, w.height-24)
			ximage.Draw(w.img, rect, &image.Uniform{C: segmentColor(seg.Pid)}, image.Point{}, ximage.Over)
		}
		w.win.UpdateSurface()
	})
}

// ShowProcess redraws pid's state square in the strip beneath the memory
// map.
func (w *Window) ShowProcess(pid int, state pcb.State) {
	sdl.Do(func() {
		y := w.height - 20
		rect := image.Rect(pid*24, y, pid*24+20, y+20)
		ximage.Draw(w.img, rect, &image.Uniform{C: processColor(state)}, image.Point{}, ximage.Over)
		w.win.UpdateSurface()
	})
}

// Close destroys the window and tears down SDL.
func (w *Window) Close() {
	sdl.Do(func() {
		w.win.Destroy()
		sdl.Quit()
	})
}

var segmentPalette = []color.RGBA{
	{R: 0xd1, G: 0x49, B: 0x5b, A: 0xff},
	{R: 0xed, G: 0xae, B: 0x49, A: 0xff},
	{R: 0x00, G: 0x6e, B: 0x90, A: 0xff},
	{R: 0x30, G: 0x63, B: 0x8e, A: 0xff},
	{R: 0x2e, G: 0x6f, B: 0x40, A: 0xff},
	{R: 0x9b, G: 0x5d, B: 0xe5, A: 0xff},
}

func segmentColor(pid int) color.RGBA {
	if pid == memory.NotInUse {
		return color.RGBA{R: 0x3a, G: 0x3a, B: 0x3a, A: 0xff}
	}
	return segmentPalette[pid%len(segmentPalette)]
}

func processColor(s pcb.State) color.RGBA {
	switch s {
	case pcb.Running:
		return color.RGBA{R: 0x2e, G: 0xcc, B: 0x71, A: 0xff}
	case pcb.Blocked:
		return color.RGBA{R: 0xe7, G: 0x4c, B: 0x3c, A: 0xff}
	case pcb.Ready:
		return color.RGBA{R: 0xf1, G: 0xc4, B: 0x0f, A: 0xff}
	case pcb.Exit:
		return color.RGBA{R: 0x7f, G: 0x8c, B: 0x8d, A: 0xff}
	default:
		return color.RGBA{R: 0x34, G: 0x49, B: 0x5e, A: 0xff}
	}
}

// nullRenderer is the default Renderer when no display is requested: it
// discards every update.
type nullRenderer struct{}

// NewNull returns a sim.Renderer that does nothing.
func NewNull() sim.Renderer {
	return nullRenderer{}
}

func (nullRenderer) ShowMemory(segs []memory.SegmentView) {}
func (nullRenderer) ShowProcess(pid int, state pcb.State) {}
func (nullRenderer) Close()                               {}
