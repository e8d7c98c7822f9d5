package httpapi

import (
	"github.com/ElectronicCats/uvc-fingerprint-server/provider/httpserver"
	"github.com/gin-gonic/gin"
)

func (a *api) autopunchStatus(c *gin.Context) {
	httpserver.HttpSuccess(c, a.deps.AutoPunch.GetStatus())
}

func (a *api) autopunchLastResult(c *gin.Context) {
	result, ok := a.deps.AutoPunch.GetLastResult()
	if !ok {
		httpserver.HttpSuccess(c, nil)
		return
	}
	httpserver.HttpSuccess(c, result)
}

func (a *api) autopunchEnable(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	a.deps.AutoPunch.Enable()
	httpserver.HttpSuccess(c, a.deps.AutoPunch.GetStatus())
}

func (a *api) autopunchDisable(c *gin.Context) {
	var q tokenQuery
	if !httpserver.ValidateQuery(c, &q) {
		return
	}
	if !a.requireAdmin(c, q.Token) {
		return
	}
	a.deps.AutoPunch.Disable()
	httpserver.HttpSuccess(c, a.deps.AutoPunch.GetStatus())
}
