package camera

import "image"

// stubBackend is the portable, dependency-free backend used on platforms
// without a registered native webcam backend, and in tests. It reports one
// default device and grabs a deterministic synthetic frame.
type stubBackend struct {
	width, height int
}

func newStubBackend() *stubBackend {
	return &stubBackend{width: 640, height: 480}
}

func (b *stubBackend) ListDevices() ([]Device, error) {
	return []Device{{Index: 0, Name: "Default Camera", Width: b.width, Height: b.height, FPS: 15}}, nil
}

func (b *stubBackend) Grab(deviceIndex int) (*image.RGBA, error) {
	if deviceIndex != 0 {
		return nil, ErrDeviceNotFound{Index: deviceIndex}
	}
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i] = byte(x * 255 / b.width)
			img.Pix[i+1] = byte(y * 255 / b.height)
			img.Pix[i+2] = 128
			img.Pix[i+3] = 255
		}
	}
	return img, nil
}
