package autopunch

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/matcher"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/timeclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is a capture.Device stub that serves frames from a queue and
// writes a tiny valid PNG on CaptureFingerprint, so processPunch's pipeline
// has a real file to hand the (fake-binary) matcher.
type fakeDevice struct {
	mu     sync.Mutex
	frames []image.Image
	idx    int
}

func newFakeDevice(frames ...image.Image) *fakeDevice {
	return &fakeDevice{frames: frames}
}

func (f *fakeDevice) Open() error  { return nil }
func (f *fakeDevice) Close() error { return nil }

func (f *fakeDevice) CaptureFrame() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return solidFrame(0), nil
	}
	img := f.frames[f.idx]
	if f.idx < len(f.frames)-1 {
		f.idx++
	}
	return img, nil
}

func (f *fakeDevice) ROIFrame() (image.Image, bool, error) {
	img, err := f.CaptureFrame()
	return img, true, err
}

func (f *fakeDevice) CaptureFingerprint(path string) error {
	return os.WriteFile(path, fakePNGBytes(), 0o644)
}

func (f *fakeDevice) FrameJPEG() ([]byte, error) { return nil, nil }
func (f *fakeDevice) Test() capture.Diagnostics  { return capture.Diagnostics{} }

var _ capture.Device = (*fakeDevice)(nil)

func solidFrame(v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func noisyFrame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: 250})
		}
	}
	return img
}

func fakePNGBytes() []byte {
	// Just the 8-byte PNG signature; the fake matcher binaries never actually decode it.
	return []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	}
}

func writeFakeTool(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
}

func newTestMatcher(t *testing.T, mindtctBody, bozorth3Body string) *matcher.Matcher {
	t.Helper()
	dir := t.TempDir()
	mindtctPath := filepath.Join(dir, "mindtct")
	bozorth3Path := filepath.Join(dir, "bozorth3")
	writeFakeTool(t, mindtctPath, mindtctBody)
	writeFakeTool(t, bozorth3Path, bozorth3Body)

	m, err := matcher.New(&config.FingerprintConfig{
		MindtctPath:    mindtctPath,
		Bozorth3Path:   bozorth3Path,
		MatchThreshold: 40,
	}, false)
	require.NoError(t, err)
	return m
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "autopunch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestAutoPunch(t *testing.T, device capture.Device, m *matcher.Matcher) (*AutoPunch, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	tc := timeclock.New(s, "kiosk-1", 3)
	cfg := &config.AutoPunchConfig{
		DifferenceThreshold: 0.15,
		StableFrames:        2,
		CooldownSeconds:     0,
		MotionDelta:         30,
	}
	return New(device, m, tc, s, cfg, t.TempDir()), s
}

func TestDetectChangeBelowThreshold(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 0`)
	a, _ := newTestAutoPunch(t, newFakeDevice(), m)

	baseline := solidFrame(10).(*image.Gray)
	current := solidFrame(12).(*image.Gray)
	assert.False(t, a.detectChange(baseline, current))
}

func TestDetectChangeAboveThreshold(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 0`)
	a, _ := newTestAutoPunch(t, newFakeDevice(), m)

	baseline := solidFrame(10).(*image.Gray)
	current := noisyFrame().(*image.Gray)
	assert.True(t, a.detectChange(baseline, current))
}

func TestStartStopLifecycle(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 0`)
	a, _ := newTestAutoPunch(t, newFakeDevice(solidFrame(10)), m)

	a.Start()
	assert.True(t, a.GetStatus().Running)
	a.Enable()
	assert.True(t, a.GetStatus().Enabled)

	a.Stop()
	assert.False(t, a.GetStatus().Running)
}

func TestDisableClearsEnabledAndPublishesNoResult(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 0`)
	a, _ := newTestAutoPunch(t, newFakeDevice(solidFrame(10)), m)

	a.Disable()
	assert.False(t, a.isEnabled())
	_, ok := a.GetLastResult()
	assert.False(t, ok)
}

func TestProcessPunchNoEnrolledUsersPublishesFailure(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 0`)
	a, _ := newTestAutoPunch(t, newFakeDevice(solidFrame(10)), m)

	a.processPunch(context.Background())

	result, ok := a.GetLastResult()
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, "no enrolled users", result.Message)
}

func TestProcessPunchSuccessPublishesResult(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 85`)
	a, s := newTestAutoPunch(t, newFakeDevice(solidFrame(10)), m)

	u, err := s.CreateUser(context.Background(), "Ada Lovelace", "EMP900")
	require.NoError(t, err)
	_, err = s.AddTemplate(context.Background(), u.ID, filepath.Join(t.TempDir(), "gallery.xyt"), 80)
	require.NoError(t, err)

	a.processPunch(context.Background())

	result, ok := a.GetLastResult()
	require.True(t, ok)
	assert.True(t, result.Success)
	assert.Equal(t, "Ada Lovelace", result.UserName)
	assert.Equal(t, store.PunchIn, result.PunchType)
	assert.Equal(t, 85, result.MatchScore)
}

func TestProcessPunchBelowThresholdPublishesFailure(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 5`)
	a, s := newTestAutoPunch(t, newFakeDevice(solidFrame(10)), m)

	u, err := s.CreateUser(context.Background(), "Ada Lovelace", "EMP901")
	require.NoError(t, err)
	_, err = s.AddTemplate(context.Background(), u.ID, filepath.Join(t.TempDir(), "gallery.xyt"), 80)
	require.NoError(t, err)

	a.processPunch(context.Background())

	result, ok := a.GetLastResult()
	require.True(t, ok)
	assert.False(t, result.Success)
	assert.Equal(t, "fingerprint not recognized", result.Message)
}

func TestMonitorLoopDetectsMotionAndRecordsPunch(t *testing.T) {
	m := newTestMatcher(t, `touch "$2.xyt"`, `echo 85`)
	device := newFakeDevice(solidFrame(10), noisyFrame(), noisyFrame(), noisyFrame())
	a, s := newTestAutoPunch(t, device, m)

	u, err := s.CreateUser(context.Background(), "Grace Hopper", "EMP902")
	require.NoError(t, err)
	_, err = s.AddTemplate(context.Background(), u.ID, filepath.Join(t.TempDir(), "gallery.xyt"), 80)
	require.NoError(t, err)

	a.Enable()
	a.Start()
	defer a.Stop()

	require.Eventually(t, func() bool {
		result, ok := a.GetLastResult()
		return ok && result.Success
	}, 2*time.Second, 20*time.Millisecond)
}
