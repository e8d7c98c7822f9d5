// Package capture owns the camera device for the lifetime of the kiosk
// process. AutoPunch and the admin calibration stream share a single Device
// instance so they never contend for the same V4L2 node.
package capture

import (
	"image"
)

// Device is the camera capture contract. The kiosk runs exactly one
// implementation (v4l2.Camera), but handlers and AutoPunch depend on this
// interface so they can be exercised against a fake in tests.
type Device interface {
	// Open is idempotent; it sets the configured resolution. Failure is
	// reported through the returned error, never a panic.
	Open() error
	Close() error

	// CaptureFrame returns the most recent raw color frame.
	CaptureFrame() (image.Image, error)

	// ROIFrame applies the configured region of interest to a freshly
	// captured frame. If the ROI exceeds frame bounds it falls back to the
	// whole frame and reports that fallback via roiApplied=false rather
	// than failing.
	ROIFrame() (img image.Image, roiApplied bool, err error)

	// CaptureFingerprint converts an ROI frame to 8-bit grayscale (required
	// by NBIS) and writes it as a PNG to path.
	CaptureFingerprint(path string) error

	// FrameJPEG returns the current frame encoded as JPEG, for the
	// calibration live view.
	FrameJPEG() ([]byte, error)

	// Test runs a non-destructive diagnostic pass and never returns an
	// error itself; failures are reported inside Diagnostics.Error.
	Test() Diagnostics
}

// Diagnostics is the camera self-test report surfaced to the admin UI.
type Diagnostics struct {
	Device        string `json:"device"`
	Accessible    bool   `json:"accessible"`
	Opened        bool   `json:"opened"`
	FrameCaptured bool   `json:"frame_captured"`
	Resolution    string `json:"resolution,omitempty"`
	ROIValid      bool   `json:"roi_valid"`
	Error         string `json:"error,omitempty"`
}

// ROI is a pixel rectangle within a captured frame.
type ROI struct {
	X, Y, Width, Height int
}
