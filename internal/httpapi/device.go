package httpapi

import (
	"errors"

	"github.com/ElectronicCats/uvc-fingerprint-server/internal/deviceauth"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

type deviceEnrollRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	Token      string `json:"token" binding:"required"`
	Name       string `json:"name" binding:"required"`
	AdminToken string `json:"admin_token" binding:"required"`
}

// deviceEnroll binds a companion device token to a user; the device's own
// user agent is captured from the request header so later challenges can
// flag an unexpected change.
func (a *api) deviceEnroll(c *gin.Context) {
	var req deviceEnrollRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}
	if !a.requireAdmin(c, req.AdminToken) {
		return
	}

	userAgent := c.Request.UserAgent()
	device, err := a.deps.DeviceAuth.Enroll(c.Request.Context(), req.UserID, req.Token, req.Name, userAgent)
	if errors.Is(err, store.Duplicate) {
		httpserver.HttpError400(c, "device already enrolled")
		return
	}
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{"device_id": device.ID})
}

type deviceChallengeRequest struct {
	Token string `json:"token" binding:"required"`
}

func (a *api) deviceChallenge(c *gin.Context) {
	var req deviceChallengeRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}
	value, ttl, err := a.deps.DeviceAuth.Challenge(c.Request.Context(), req.Token, c.Request.UserAgent())
	if errors.Is(err, deviceauth.ErrDeviceNotFound) {
		httpserver.HttpError404(c)
		return
	}
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{
		"challenge":  value,
		"expires_in": int(ttl.Seconds()),
	})
}

type devicePunchRequest struct {
	Token     string `json:"token" binding:"required"`
	Challenge string `json:"challenge" binding:"required"`
}

func (a *api) devicePunch(c *gin.Context) {
	var req devicePunchRequest
	if !httpserver.ValidateJSON(c, &req) {
		return
	}

	ok, punch, message, err := a.deps.DeviceAuth.Punch(c.Request.Context(), req.Token, req.Challenge)
	switch {
	case errors.Is(err, deviceauth.ErrChallengeInvalid):
		httpserver.HttpError403Msg(c, "Invalid or expired challenge")
		return
	case errors.Is(err, deviceauth.ErrDeviceNotFound):
		httpserver.HttpError404(c)
		return
	case err != nil:
		httpserver.HttpError500(c, err)
		return
	}
	if !ok {
		httpserver.HttpError429(c, message)
		return
	}

	user, err := a.deps.Store.GetUser(c.Request.Context(), punch.UserID)
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{
		"user_name":  user.Name,
		"punch_type": punch.PunchType,
		"timestamp":  punch.TimestampUTC,
	})
}

func (a *api) deviceMyStatus(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	device, err := a.deps.Store.GetDeviceByToken(c.Request.Context(), q.Token)
	if errors.Is(err, store.NotFound) {
		httpserver.HttpSuccess(c, gin.H{"enrolled": false})
		return
	}
	if err != nil {
		httpserver.HttpError500(c, err)
		return
	}
	httpserver.HttpSuccess(c, gin.H{
		"enrolled":    true,
		"device_name": device.Name,
		"user_name":   device.User.Name,
	})
}
