package httpapi

import (
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

func (a *api) syncStatus(c *gin.Context) {
	httpserver.HttpSuccess(c, a.deps.SyncWorker.GetStatus(c.Request.Context()))
}

func (a *api) syncTrigger(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	a.deps.SyncWorker.SyncNow(c.Request.Context())
	httpserver.HttpSuccess(c, a.deps.SyncWorker.GetStatus(c.Request.Context()))
}
