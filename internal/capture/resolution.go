package capture

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Preset is a named resolution ceiling. Scaling is downscale-only and
// preserves aspect ratio.
type Preset struct {
	Name          string
	MaxW, MaxH    int
}

var presets = map[string]Preset{
	"native": {"native", 0, 0},
	"1080p":  {"1080p", 1920, 1080},
	"720p":   {"720p", 1280, 720},
	"480p":   {"480p", 854, 480},
	"360p":   {"360p", 640, 360},
}

// ResolvePreset validates a resolution preset name.
func ResolvePreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("capture: unknown resolution preset %q", name)
	}
	return p, nil
}

// targetSize computes the downscale-only, aspect-preserving target size for
// an image of dimensions (w,h) under preset p. Returns (w,h) unchanged if
// the preset is native or the image is already within bounds.
func targetSize(w, h int, p Preset) (int, int) {
	if p.MaxW == 0 || p.MaxH == 0 {
		return w, h
	}
	if w <= p.MaxW && h <= p.MaxH {
		return w, h
	}
	scale := float64(p.MaxW) / float64(w)
	if alt := float64(p.MaxH) / float64(h); alt < scale {
		scale = alt
	}
	nw := int(float64(w) * scale)
	nh := int(float64(h) * scale)
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

// scaleImage resizes src to fit preset p, preserving aspect ratio and never
// upscaling. quality >= 80 uses x/image/draw's bilinear scaler for higher
// fidelity; lower quality settings use a cheap nearest-neighbor pass since
// the JPEG encoder's own quality knob dominates visual fidelity at that
// point anyway.
func scaleImage(src *image.RGBA, p Preset, quality int) *image.RGBA {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	nw, nh := targetSize(w, h, p)
	if nw == w && nh == h {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	if quality >= 80 {
		xdraw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		return dst
	}

	nearestNeighborScale(dst, src)
	return dst
}

// nearestNeighborScale is the fast, allocation-light scaler used below
// quality 80, operating directly on the Pix byte slices.
func nearestNeighborScale(dst, src *image.RGBA) {
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	dw, dh := dst.Bounds().Dx(), dst.Bounds().Dy()
	if dw == 0 || dh == 0 {
		return
	}

	for y := 0; y < dh; y++ {
		sy := y * sh / dh
		for x := 0; x < dw; x++ {
			sx := x * sw / dw
			si := src.PixOffset(sx+src.Rect.Min.X, sy+src.Rect.Min.Y)
			di := dst.PixOffset(x+dst.Rect.Min.X, y+dst.Rect.Min.Y)
			copy(dst.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
}
