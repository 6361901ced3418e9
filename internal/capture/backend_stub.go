package capture

import "image"

// stubBackend is the portable, dependency-free backend used on platforms
// without a registered native capture backend, and in tests. It reports one
// default monitor and grabs a deterministic synthetic frame, mirroring the
// reference repo's own non-Windows ListMonitors stub (one default monitor,
// no real pixel access).
type stubBackend struct {
	width, height int
}

func newStubBackend() *stubBackend {
	return &stubBackend{width: 1920, height: 1080}
}

func (b *stubBackend) ListMonitors() ([]Monitor, error) {
	return []Monitor{{Index: 1, Name: "Display 1", Width: b.width, Height: b.height, IsPrimary: true}}, nil
}

func (b *stubBackend) Grab(monitorIndex int) (*image.RGBA, error) {
	if monitorIndex != 1 {
		return nil, ErrMonitorNotFound{Index: monitorIndex}
	}
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	fillTestPattern(img)
	return img, nil
}

// fillTestPattern writes a simple diagonal gradient so encoded frames are
// non-trivial to compress and visibly change between captures in tests.
func fillTestPattern(img *image.RGBA) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = byte(x * 255 / w)
			img.Pix[i+1] = byte(y * 255 / h)
			img.Pix[i+2] = byte((x + y) * 255 / (w + h))
			img.Pix[i+3] = 255
		}
	}
}
