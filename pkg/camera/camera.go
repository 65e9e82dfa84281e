// Package camera defines the boundary to the onboard camera. The capture
// and encoding pipeline lives outside this firmware; the web layer only
// needs a source of encoded frames to push down the stream channel.
package camera

// FrameSource produces encoded (JPEG) camera frames.
type FrameSource interface {
	// Capture returns the next encoded frame.
	Capture() ([]byte, error)
}

// FrameSourceFunc adapts a function to the FrameSource interface.
type FrameSourceFunc func() ([]byte, error)

// Capture implements FrameSource.
func (f FrameSourceFunc) Capture() ([]byte, error) {
	return f()
}
