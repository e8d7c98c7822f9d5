package httpapi

import (
	"net/http"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

// calibrationStream serves a single JPEG frame for the admin calibration
// UI's live preview. It carries no admin-token gate, matching the original
// camera-setup tool this kiosk's calibration flow is modeled on.
func (a *api) calibrationStream(c *gin.Context) {
	jpeg, err := a.deps.Device.FrameJPEG()
	if err != nil || len(jpeg) == 0 {
		c.String(http.StatusServiceUnavailable, "camera not available")
		return
	}
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

func (a *api) calibrationGetROI(c *gin.Context) {
	httpserver.HttpSuccess(c, a.deps.Config.Camera.ROI)
}

type roiRequest struct {
	X      int `json:"x" binding:"min=0,max=1920"`
	Y      int `json:"y" binding:"min=0,max=1920"`
	Width  int `json:"width" binding:"min=10,max=1920"`
	Height int `json:"height" binding:"min=10,max=1920"`
}

func (a *api) calibrationSetROI(c *gin.Context) {
	var req roiRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}
	roi := config.ROI{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	if err := a.deps.Config.SetROI(roi); err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{"message": "ROI saved"})
}
