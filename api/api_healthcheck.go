package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quresis/go-quresis-server/global"
)

type HealthCheckAPI struct {
}

func NewHealthCheckAPI() *HealthCheckAPI {
	return &HealthCheckAPI{}
}

func (ha *HealthCheckAPI) HealthCheck(c *gin.Context) {
	version := global.Conf.Version
	mode := global.Conf.Mode
	oracle := global.Conf.Quresis.Oracle
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version, "mode": mode, "oracle": oracle})
}
