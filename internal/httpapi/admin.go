package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/adminauth"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

func (a *api) adminLogin(c *gin.Context) {
	var req loginRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}
	token, err := a.deps.AdminAuth.Login(req.Password, c.ClientIP())
	switch {
	case errors.Is(err, adminauth.ErrRateLimited):
		httpserver.HttpError429(c, "too many login attempts, please wait")
		return
	case errors.Is(err, adminauth.ErrInvalidPassword):
		httpserver.HttpError401(c)
		return
	case err != nil:
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{"token": token})
}

type logoutRequest struct {
	Token string `json:"token" binding:"required"`
}

func (a *api) adminLogout(c *gin.Context) {
	var req logoutRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}
	a.deps.AdminAuth.Logout(req.Token)
	httpserver.HttpSuccess(c, nil)
}

type enrollStartRequest struct {
	Name         string `json:"name" binding:"required"`
	EmployeeCode string `json:"employee_code" binding:"required"`
	Token        string `json:"token" binding:"required"`
}

func (a *api) enrollStart(c *gin.Context) {
	var req enrollStartRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}
	if !a.requireAdmin(c, req.Token) {
		return
	}

	user, err := a.deps.Store.CreateUser(c.Request.Context(), req.Name, req.EmployeeCode)
	if errors.Is(err, store.Duplicate) {
		httpserver.HttpError400(c, "employee code already enrolled")
		return
	}
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}

	httpserver.HttpSuccess(c, gin.H{
		"user_id":            user.ID,
		"message":            "enrollment started",
		"required_templates": requiredTemplates,
	})
}

type enrollCaptureQuery struct {
	UserID       int64  `form:"user_id" binding:"required"`
	SampleNumber int    `form:"sample_number" binding:"required"`
	Token        string `form:"token" binding:"required"`
}

// enrollCapture captures one fingerprint sample for an in-progress
// enrollment, scores its quality, and persists it as a template when the
// configured minimum quality gate is met.
func (a *api) enrollCapture(c *gin.Context) {
	var q enrollCaptureQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}

	user, err := a.deps.Store.GetUser(c.Request.Context(), q.UserID)
	if errors.Is(err, store.NotFound) {
		httpserver.HttpError404(c)
		return
	}
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}

	imgPath := enrollSamplePath(a.deps.Config, user.EmployeeCode, q.SampleNumber)
	if err := a.deps.Device.CaptureFingerprint(imgPath); err != nil {
		httpserver.HttpSuccess(c, gin.H{
			"quality": 0, "sample_number": q.SampleNumber,
			"message": "capture failed: " + err.Error(),
		})
		return
	}

	ok, xytPath, quality := a.deps.Matcher.ExtractFeatures(c.Request.Context(), imgPath)
	if !ok {
		httpserver.HttpSuccess(c, gin.H{
			"quality": 0, "sample_number": q.SampleNumber,
			"message": "feature extraction failed",
		})
		return
	}
	if quality < a.deps.Config.Fingerprint.MinQualityScore {
		httpserver.HttpSuccess(c, gin.H{
			"quality": quality, "sample_number": q.SampleNumber,
			"message": "sample quality too low, please try again",
		})
		return
	}

	if _, err := a.deps.Store.AddTemplate(c.Request.Context(), user.ID, xytPath, quality); err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{
		"quality": quality, "sample_number": q.SampleNumber,
		"message": "sample captured",
	})
}

func enrollSamplePath(cfg *config.Config, employeeCode string, sampleNumber int) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return cfg.Storage.TemplateDir + "/" + employeeCode + "_" + strconv.Itoa(sampleNumber) + "_" + stamp + ".png"
}

type tokenQuery struct {
	Token string `form:"token" binding:"required"`
}

func (a *api) listUsers(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	users, err := a.deps.Store.ListUsers(c.Request.Context(), false)
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, users)
}

func (a *api) deactivateUser(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpserver.HttpError400(c, "invalid user id")
		return
	}
	if err := a.deps.Store.DeactivateUser(c.Request.Context(), id); errors.Is(err, store.NotFound) {
		httpserver.HttpError404(c)
		return
	} else if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, nil)
}

func (a *api) deleteUser(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpserver.HttpError400(c, "invalid user id")
		return
	}
	if err := a.deps.Store.DeleteUser(c.Request.Context(), id); errors.Is(err, store.NotFound) {
		httpserver.HttpError404(c)
		return
	} else if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, nil)
}

func (a *api) listDevices(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	devices, err := a.deps.Store.ListDevices(c.Request.Context())
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, devices)
}

func (a *api) deleteDevice(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpserver.HttpError400(c, "invalid device id")
		return
	}
	if err := a.deps.Store.DeleteDevice(c.Request.Context(), id); errors.Is(err, store.NotFound) {
		httpserver.HttpError404(c)
		return
	} else if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, nil)
}
