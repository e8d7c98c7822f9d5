package httpapi

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

// kioskPunch runs the synchronous capture -> extract -> identify -> record
// pipeline on demand, for a kiosk UI that triggers a punch attempt directly
// instead of waiting on AutoPunch's motion trigger. Biometric failures are
// expected outcomes, not transport errors, so they come back as HTTP 200
// with success:false per the error-handling policy.
func (a *api) kioskPunch(c *gin.Context) {
	ctx := c.Request.Context()

	imgPath := filepath.Join(a.deps.TempDir, fmt.Sprintf("probe_%s.png", time.Now().UTC().Format("20060102_150405.000000")))
	defer os.Remove(imgPath)

	if err := a.deps.Device.CaptureFingerprint(imgPath); err != nil {
		httpserver.HttpSuccess(c, gin.H{"success": false, "message": "capture failed: " + err.Error()})
		return
	}

	ok, probeXYT, _ := a.deps.Matcher.ExtractFeatures(ctx, imgPath)
	if probeXYT != "" {
		defer os.Remove(probeXYT)
	}
	if !ok {
		httpserver.HttpSuccess(c, gin.H{"success": false, "message": "feature extraction failed"})
		return
	}

	gallery, err := a.deps.Store.GetAllTemplates(ctx)
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	if len(gallery) == 0 {
		httpserver.HttpSuccess(c, gin.H{"success": false, "message": "No enrolled users"})
		return
	}

	result, matched := a.deps.Matcher.Identify(ctx, probeXYT, gallery)
	if !matched {
		httpserver.HttpSuccess(c, gin.H{"success": false, "message": "fingerprint not recognized"})
		return
	}

	user, err := a.deps.Store.GetUser(ctx, result.UserID)
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	if !user.Active {
		httpserver.HttpSuccess(c, gin.H{"success": false, "message": "user not found or inactive"})
		return
	}

	recorded, punch, message, err := a.deps.TimeClock.RecordPunch(ctx, user.ID, result.Score)
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	if !recorded {
		if message == "" {
			message = "punch failed"
		}
		httpserver.HttpSuccess(c, gin.H{"success": false, "message": message})
		return
	}

	httpserver.HttpSuccess(c, gin.H{
		"success":     true,
		"message":     "punch recorded successfully",
		"user_name":   user.Name,
		"punch_type":  punch.PunchType,
		"match_score": result.Score,
	})
}
