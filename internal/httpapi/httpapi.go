// Package httpapi wires the kiosk's domain packages (store, matcher,
// timeclock, autopunch, deviceauth, adminauth, syncworker) onto the HTTP
// surface, grouped into one handler file per concern the way the pack's
// blueprint service splits its own routers.
package httpapi

import (
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/autopunch"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/capture"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/config"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/deviceauth"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/matcher"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/store"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/syncworker"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/timeclock"
	"github.com/ElectronicCats/uvc-fingerprint-server/internal/adminauth"
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

// requiredTemplates is how many fingerprint samples enrollment asks for
// before a new user is considered fully enrolled.
const requiredTemplates = 3

// Dependencies bundles every domain collaborator a handler might need.
// Handlers take this struct by pointer receiver via the deps field on the
// api type, never the individual packages directly, so adding a new route
// never touches NewServer's signature.
type Dependencies struct {
	Store      *store.Store
	Matcher    *matcher.Matcher
	Device     capture.Device
	TimeClock  *timeclock.TimeClock
	AutoPunch  *autopunch.AutoPunch
	DeviceAuth *deviceauth.DeviceAuth
	AdminAuth  *adminauth.AdminAuth
	SyncWorker *syncworker.SyncWorker
	Config     *config.Config
	TempDir    string
}

// api holds the Dependencies; every handler file defines methods on *api so
// they all share this one receiver.
type api struct {
	deps *Dependencies
}

// NewServer builds an httpserver.Server (request logging + security
// headers already wired by httpserver.NewServer) and registers the full
// kiosk HTTP surface on it.
func NewServer(cfg *httpserver.ServerConfig, deps *Dependencies) (*httpserver.Server, error) {
	server, err := httpserver.NewServer(cfg)
	if err != nil {
		return nil, err
	}
	RegisterRoutes(server.Router, deps)
	return server, nil
}

// RegisterRoutes attaches every kiosk route to an existing gin engine, so
// callers that assemble their own Server (e.g. tests using httptest) can
// still get the real routing table.
func RegisterRoutes(router *gin.Engine, deps *Dependencies) {
	a := &api{deps: deps}

	router.GET("/healthz", a.healthz)

	admin := router.Group("/api/admin")
	{
		admin.POST("/login", a.adminLogin)
		admin.POST("/logout", a.adminLogout)
		admin.POST("/enroll/start", a.enrollStart)
		admin.POST("/enroll/capture", a.enrollCapture)
		admin.GET("/users", a.listUsers)
		admin.POST("/users/:id/deactivate", a.deactivateUser)
		admin.DELETE("/users/:id", a.deleteUser)
		admin.GET("/devices", a.listDevices)
		admin.DELETE("/devices/:id", a.deleteDevice)
	}

	devices := router.Group("/api/devices")
	{
		devices.POST("/enroll", a.deviceEnroll)
		devices.POST("/challenge", a.deviceChallenge)
		devices.POST("/punch", a.devicePunch)
		devices.GET("/my-status", a.deviceMyStatus)
	}

	router.POST("/api/punch", a.kioskPunch)

	sync := router.Group("/api/sync")
	{
		sync.GET("/status", a.syncStatus)
		sync.POST("/trigger", a.syncTrigger)
	}

	ap := router.Group("/api/autopunch")
	{
		ap.GET("/status", a.autopunchStatus)
		ap.GET("/last-result", a.autopunchLastResult)
		ap.POST("/enable", a.autopunchEnable)
		ap.POST("/disable", a.autopunchDisable)
	}

	calibration := router.Group("/api/calibration")
	{
		calibration.GET("/stream", a.calibrationStream)
		calibration.GET("/roi", a.calibrationGetROI)
		calibration.POST("/roi", a.calibrationSetROI)
	}
}

func (a *api) healthz(c *gin.Context) {
	httpserver.HttpSuccess(c, gin.H{"status": "ok"})
}

// requireAdmin verifies an admin session token, writing a 401 and
// returning false if it does not check out.
func (a *api) requireAdmin(c *gin.Context, token string) bool {
	if token == "" || !a.deps.AdminAuth.Verify(token) {
		httpserver.HttpError401(c)
		return false
	}
	return true
}
