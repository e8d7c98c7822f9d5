// Package v4l2 captures frames from a Video4Linux2 device using the raw
// ioctl/mmap syscalls, since the pack carries no camera library and the
// kiosk's own spec treats this binding as opaque external hardware I/O.
package v4l2

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"sync"
	"unsafe"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/log"
	"golang.org/x/sys/unix"
)

const bufferCount = 4

// Camera is a V4L2 capture device; one instance is shared by AutoPunch and
// the admin calibration stream so they never contend for the node.
type Camera struct {
	mu     sync.Mutex
	cfg    *config.CameraConfig
	logger *log.Logger

	fd      int
	buffers [][]byte
	opened  bool
	width   int
	height  int
}

var _ capture.Device = (*Camera)(nil)

// New builds a Camera bound to the device path in cfg, without opening it.
func New(cfg *config.CameraConfig) *Camera {
	return &Camera{cfg: cfg, logger: log.New("capture.v4l2"), fd: -1}
}

// Open sets up the device, negotiates YUYV at the configured resolution,
// and memory-maps the capture buffers. Calling Open on an already-open
// camera is a no-op.
func (c *Camera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opened {
		return nil
	}

	fd, err := unix.Open(c.cfg.Device, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("v4l2: open %s: %w", c.cfg.Device, err)
	}
	c.fd = fd

	var capability v4l2Capability
	if err := ioctl(fd, vidiocQueryCap, unsafe.Pointer(&capability)); err != nil {
		_ = unix.Close(fd)
		c.fd = -1
		return fmt.Errorf("v4l2: query capability: %w", err)
	}

	format := v4l2Format{Type: v4l2BufTypeVideoCapture}
	format.PixField = v4l2PixFormat{
		Width:       uint32(c.cfg.Width),
		Height:      uint32(c.cfg.Height),
		PixelFormat: v4l2PixFmtYUYV,
		Field:       v4l2FieldNone,
	}
	if err := ioctl(fd, vidiocSFmt, unsafe.Pointer(&format)); err != nil {
		_ = unix.Close(fd)
		c.fd = -1
		return fmt.Errorf("v4l2: set format: %w", err)
	}
	c.width = int(format.PixField.Width)
	c.height = int(format.PixField.Height)

	req := v4l2RequestBuffers{Count: bufferCount, Type: v4l2BufTypeVideoCapture, Memory: v4l2MemoryMmap}
	if err := ioctl(fd, vidiocReqBufs, unsafe.Pointer(&req)); err != nil {
		_ = unix.Close(fd)
		c.fd = -1
		return fmt.Errorf("v4l2: request buffers: %w", err)
	}

	buffers := make([][]byte, req.Count)
	for i := uint32(0); i < req.Count; i++ {
		buf := v4l2Buffer{Type: v4l2BufTypeVideoCapture, Memory: v4l2MemoryMmap, Index: i}
		if err := ioctl(fd, vidiocQueryBuf, unsafe.Pointer(&buf)); err != nil {
			_ = unix.Close(fd)
			c.fd = -1
			return fmt.Errorf("v4l2: query buffer %d: %w", i, err)
		}
		mapped, err := unix.Mmap(fd, int64(buf.Offset), int(buf.Length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			_ = unix.Close(fd)
			c.fd = -1
			return fmt.Errorf("v4l2: mmap buffer %d: %w", i, err)
		}
		buffers[i] = mapped
		if err := ioctl(fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
			_ = unix.Close(fd)
			c.fd = -1
			return fmt.Errorf("v4l2: queue buffer %d: %w", i, err)
		}
	}
	c.buffers = buffers

	streamType := uint32(v4l2BufTypeVideoCapture)
	if err := ioctl(fd, vidiocStreamOn, unsafe.Pointer(&streamType)); err != nil {
		_ = unix.Close(fd)
		c.fd = -1
		return fmt.Errorf("v4l2: stream on: %w", err)
	}

	c.opened = true
	c.logger.Info("camera opened", map[string]interface{}{"device": c.cfg.Device, "width": c.width, "height": c.height})
	return nil
}

// Close unmaps buffers and releases the device handle.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opened {
		return nil
	}
	streamType := uint32(v4l2BufTypeVideoCapture)
	_ = ioctl(c.fd, vidiocStreamOff, unsafe.Pointer(&streamType))
	for _, b := range c.buffers {
		_ = unix.Munmap(b)
	}
	c.buffers = nil
	err := unix.Close(c.fd)
	c.fd = -1
	c.opened = false
	c.logger.Info("camera closed", nil)
	return err
}

// CaptureFrame dequeues one buffer, copies it out as a YUYV->RGB image, and
// requeues the buffer for the next capture.
func (c *Camera) CaptureFrame() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.opened {
		if err := c.openLocked(); err != nil {
			return nil, err
		}
	}

	buf := v4l2Buffer{Type: v4l2BufTypeVideoCapture, Memory: v4l2MemoryMmap}
	if err := ioctl(c.fd, vidiocDQBuf, unsafe.Pointer(&buf)); err != nil {
		return nil, fmt.Errorf("v4l2: dequeue buffer: %w", err)
	}
	raw := c.buffers[buf.Index][:buf.BytesUsed]
	img := yuyvToRGBA(raw, c.width, c.height)

	if err := ioctl(c.fd, vidiocQBuf, unsafe.Pointer(&buf)); err != nil {
		return nil, fmt.Errorf("v4l2: requeue buffer: %w", err)
	}
	return img, nil
}

// openLocked is Open's body for callers that already hold c.mu.
func (c *Camera) openLocked() error {
	c.mu.Unlock()
	err := c.Open()
	c.mu.Lock()
	return err
}

// ROIFrame captures a frame and crops it to the configured ROI, falling
// back to the full frame (with roiApplied=false) when the ROI exceeds the
// frame bounds.
func (c *Camera) ROIFrame() (image.Image, bool, error) {
	frame, err := c.CaptureFrame()
	if err != nil {
		return nil, false, err
	}
	bounds := frame.Bounds()
	roi := c.cfg.ROI
	if roi.X+roi.Width > bounds.Dx() || roi.Y+roi.Height > bounds.Dy() {
		c.logger.Warn("roi exceeds frame bounds, using full frame", map[string]interface{}{
			"roi_x": roi.X, "roi_y": roi.Y, "roi_w": roi.Width, "roi_h": roi.Height,
			"frame_w": bounds.Dx(), "frame_h": bounds.Dy(),
		})
		return frame, false, nil
	}
	rect := image.Rect(roi.X, roi.Y, roi.X+roi.Width, roi.Y+roi.Height)
	cropped := image.NewRGBA(image.Rect(0, 0, roi.Width, roi.Height))
	for y := 0; y < roi.Height; y++ {
		for x := 0; x < roi.Width; x++ {
			cropped.Set(x, y, frame.At(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return cropped, true, nil
}

// CaptureFingerprint converts the ROI frame to 8-bit grayscale, the depth
// NBIS requires, and writes it as a PNG.
func (c *Camera) CaptureFingerprint(path string) error {
	img, _, err := c.ROIFrame()
	if err != nil {
		return fmt.Errorf("capture fingerprint: %w", err)
	}
	gray := toGray(img)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("capture fingerprint: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, gray); err != nil {
		return fmt.Errorf("capture fingerprint: encode png: %w", err)
	}
	c.logger.Info("fingerprint image saved", map[string]interface{}{"path": path})
	return nil
}

// FrameJPEG encodes the current full frame as JPEG for the calibration
// stream.
func (c *Camera) FrameJPEG() ([]byte, error) {
	frame, err := c.CaptureFrame()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("v4l2: encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Test runs a non-destructive self-check: device presence, open, one
// capture, and ROI validity against the captured resolution.
func (c *Camera) Test() capture.Diagnostics {
	diag := capture.Diagnostics{Device: c.cfg.Device}

	if _, err := unix.Stat(c.cfg.Device, &unix.Stat_t{}); err != nil {
		diag.Error = fmt.Sprintf("device %s not found", c.cfg.Device)
		return diag
	}
	diag.Accessible = true

	wasOpen := c.opened
	if !wasOpen {
		if err := c.Open(); err != nil {
			diag.Error = err.Error()
			return diag
		}
	}
	diag.Opened = true

	frame, err := c.CaptureFrame()
	if err != nil {
		diag.Error = err.Error()
		if !wasOpen {
			_ = c.Close()
		}
		return diag
	}
	diag.FrameCaptured = true
	b := frame.Bounds()
	diag.Resolution = fmt.Sprintf("%dx%d", b.Dx(), b.Dy())
	roi := c.cfg.ROI
	diag.ROIValid = roi.X+roi.Width <= b.Dx() && roi.Y+roi.Height <= b.Dy()

	if !wasOpen {
		_ = c.Close()
	}
	return diag
}

func ioctl(fd int, req uint, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// yuyvToRGBA decodes a packed YUYV (4:2:2) buffer into an RGBA image.
func yuyvToRGBA(raw []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stride := width * 2
	for y := 0; y < height; y++ {
		row := raw[y*stride:]
		for x := 0; x+1 < width; x += 2 {
			i := x * 2
			if i+3 >= len(row) {
				break
			}
			y0, u, y1, v := row[i], row[i+1], row[i+2], row[i+3]
			img.Set(x, y, yuvToRGBA(y0, u, v))
			img.Set(x+1, y, yuvToRGBA(y1, u, v))
		}
	}
	return img
}

func yuvToRGBA(y, u, v byte) color.RGBA {
	r, g, b := color.YCbCrToRGB(y, u, v)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// toGray converts any image.Image to 8-bit grayscale.
func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, src.At(x, y))
		}
	}
	return gray
}
