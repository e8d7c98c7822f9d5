// Package autopunch drives the unattended kiosk: a dedicated goroutine
// watches the camera for a finger placement, and on a stable trigger runs
// capture → identify → record through to a punch.
package autopunch

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/matcher"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/timeclock"
	"github.com/ElectronicCats/uvc-fingerprint-server/log"
	"github.com/ElectronicCats/uvc-fingerprint-server/types/collections"
)

const lastResultKey = "last"

// LastResult is the single most recent punch attempt outcome, polled by
// the admin UI.
type LastResult struct {
	Timestamp time.Time        `json:"timestamp"`
	Success   bool             `json:"success"`
	Message   string           `json:"message"`
	UserName  string           `json:"user_name,omitempty"`
	PunchType store.PunchType  `json:"punch_type,omitempty"`
	MatchScore int             `json:"match_score,omitempty"`
}

// Status is the worker's externally-polled running/enabled state.
type Status struct {
	Running bool `json:"running"`
	Enabled bool `json:"enabled"`
}

// AutoPunch owns the camera handle for the kiosk's unattended punch loop.
type AutoPunch struct {
	device    capture.Device
	matcher   *matcher.Matcher
	timeClock *timeclock.TimeClock
	store     *store.Store
	tempDir   string
	logger    *log.Logger

	differenceThreshold float64
	stableFrames        int
	cooldown            time.Duration
	motionDelta         int

	mu      sync.Mutex
	running bool
	enabled bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	lastResult *collections.Map[string, LastResult]
}

func New(device capture.Device, m *matcher.Matcher, tc *timeclock.TimeClock, s *store.Store, cfg *config.AutoPunchConfig, tempDir string) *AutoPunch {
	return &AutoPunch{
		device:              device,
		matcher:             m,
		timeClock:           tc,
		store:               s,
		tempDir:             tempDir,
		logger:              log.New("autopunch"),
		differenceThreshold: cfg.DifferenceThreshold,
		stableFrames:        cfg.StableFrames,
		cooldown:            time.Duration(cfg.CooldownSeconds) * time.Second,
		motionDelta:         cfg.MotionDelta,
		lastResult:          collections.NewMap[string, LastResult](),
	}
}

// Start launches the monitor goroutine if it is not already running.
func (a *AutoPunch) Start() {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.mu.Unlock()

	go a.monitorLoop()
	a.logger.Info("autopunch monitor started", nil)
}

// Stop signals the loop to exit, joins it with a 5-second bound, and closes
// the camera.
func (a *AutoPunch) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	close(a.stopCh)
	a.running = false
	done := a.doneCh
	a.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		a.logger.Warn("autopunch monitor did not stop within 5s", nil)
	}
	_ = a.device.Close()
	a.logger.Info("autopunch monitor stopped", nil)
}

// Enable turns on punch processing; the next iteration establishes a fresh
// baseline.
func (a *AutoPunch) Enable() {
	a.mu.Lock()
	a.enabled = true
	a.mu.Unlock()
}

// Disable turns off punch processing without stopping the monitor loop.
func (a *AutoPunch) Disable() {
	a.mu.Lock()
	a.enabled = false
	a.mu.Unlock()
}

// GetStatus reports the running/enabled flags.
func (a *AutoPunch) GetStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{Running: a.running, Enabled: a.enabled}
}

// GetLastResult returns the most recent punch attempt outcome, if any.
func (a *AutoPunch) GetLastResult() (LastResult, bool) {
	r, err := a.lastResult.Get(lastResultKey)
	if err != nil {
		return LastResult{}, false
	}
	return r, true
}

func (a *AutoPunch) isEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

func (a *AutoPunch) monitorLoop() {
	defer close(a.doneCh)

	var baseline *image.Gray
	stableCount := 0
	var lastPunchTime time.Time

	for {
		select {
		case <-a.stopCh:
			return
		default:
		}

		if !a.isEnabled() {
			baseline = nil
			stableCount = 0
			sleep(a.stopCh, 500*time.Millisecond)
			continue
		}

		if time.Since(lastPunchTime) < a.cooldown {
			sleep(a.stopCh, 100*time.Millisecond)
			continue
		}

		frame, err := a.device.CaptureFrame()
		if err != nil || frame == nil {
			sleep(a.stopCh, 500*time.Millisecond)
			continue
		}
		gray := toGray(frame)

		if baseline == nil {
			baseline = gray
			sleep(a.stopCh, 100*time.Millisecond)
			continue
		}

		if a.detectChange(baseline, gray) {
			stableCount++
			if stableCount >= a.stableFrames {
				a.processPunch(context.Background())
				stableCount = 0
				baseline = nil
				lastPunchTime = time.Now()
			}
		} else {
			stableCount = 0
		}

		sleep(a.stopCh, 100*time.Millisecond)
	}
}

// sleep waits for d or returns early if stopCh closes.
func sleep(stopCh <-chan struct{}, d time.Duration) {
	select {
	case <-time.After(d):
	case <-stopCh:
	}
}

// detectChange counts pixels whose absolute difference from baseline
// exceeds motionDelta and compares the fraction against the configured
// difference threshold.
func (a *AutoPunch) detectChange(baseline, current *image.Gray) bool {
	bounds := baseline.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return false
	}
	changed := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			b := int(baseline.GrayAt(x, y).Y)
			c := int(current.GrayAt(x, y).Y)
			diff := b - c
			if diff < 0 {
				diff = -diff
			}
			if diff > a.motionDelta {
				changed++
			}
		}
	}
	ratio := float64(changed) / float64(total)
	return ratio > a.differenceThreshold
}

func (a *AutoPunch) processPunch(ctx context.Context) {
	imgPath := filepath.Join(a.tempDir, fmt.Sprintf("autopunch_%s.png", time.Now().UTC().Format("20060102_150405.000000")))
	defer os.Remove(imgPath)

	if err := a.device.CaptureFingerprint(imgPath); err != nil {
		a.publishFailure(fmt.Sprintf("capture failed: %s", err))
		playErrorSound()
		return
	}

	ok, probeXYT, _ := a.matcher.ExtractFeatures(ctx, imgPath)
	if probeXYT != "" {
		defer os.Remove(probeXYT)
	}
	if !ok {
		a.publishFailure("feature extraction failed")
		playErrorSound()
		return
	}

	gallery, err := a.store.GetAllTemplates(ctx)
	if err != nil || len(gallery) == 0 {
		a.publishFailure("no enrolled users")
		playErrorSound()
		return
	}

	result, matched := a.matcher.Identify(ctx, probeXYT, gallery)
	if !matched {
		a.publishFailure("fingerprint not recognized")
		playErrorSound()
		return
	}

	user, err := a.store.GetUser(ctx, result.UserID)
	if err != nil || !user.Active {
		a.publishFailure("user not found or inactive")
		playErrorSound()
		return
	}

	ok2, punch, message, err := a.timeClock.RecordPunch(ctx, user.ID, result.Score)
	if err != nil || !ok2 {
		if message == "" {
			message = "punch failed"
		}
		a.publishFailure(message)
		playErrorSound()
		return
	}

	a.logger.Info("autopunch successful", map[string]interface{}{
		"user": user.Name, "employee_code": user.EmployeeCode,
		"punch_type": punch.PunchType, "score": result.Score,
	})
	a.publishSuccess(user.Name, punch.PunchType, result.Score)
	playSuccessSound(punch.PunchType)
}

func (a *AutoPunch) publishFailure(message string) {
	a.logger.Warn("autopunch attempt failed", map[string]interface{}{"message": message})
	a.lastResult.Add(lastResultKey, LastResult{
		Timestamp: time.Now().UTC(), Success: false, Message: message,
	})
}

func (a *AutoPunch) publishSuccess(userName string, punchType store.PunchType, score int) {
	a.lastResult.Add(lastResultKey, LastResult{
		Timestamp: time.Now().UTC(), Success: true, Message: "punch recorded successfully",
		UserName: userName, PunchType: punchType, MatchScore: score,
	})
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, img.At(x, y))
		}
	}
	return gray
}

// playSuccessSound plays two short beeps for IN, one long beep for OUT.
// Audio feedback is best-effort: a missing beep/speaker-test binary never
// surfaces as a failure.
func playSuccessSound(punchType store.PunchType) {
	if punchType == store.PunchIn {
		beep(100 * time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		beep(100 * time.Millisecond)
		return
	}
	beep(300 * time.Millisecond)
}

// playErrorSound plays three short beeps.
func playErrorSound() {
	for i := 0; i < 3; i++ {
		beep(50 * time.Millisecond)
		time.Sleep(50 * time.Millisecond)
	}
}

// beep tries the `beep` utility first, falling back to `speaker-test`;
// either one missing or erroring is silently ignored.
func beep(d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ms := fmt.Sprintf("%d", d.Milliseconds())
	if err := exec.CommandContext(ctx, "beep", "-l", ms).Run(); err == nil {
		return
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), d+100*time.Millisecond)
	defer cancel2()
	_ = exec.CommandContext(ctx2, "speaker-test", "-t", "sine", "-f", "1000", "-l", "1").Run()
}
