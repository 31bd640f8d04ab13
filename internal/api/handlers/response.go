package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spyware-scanner/spyware-scanner-go/internal/provider"
	"github.com/spyware-scanner/spyware-scanner-go/internal/service"
	"github.com/spyware-scanner/spyware-scanner-go/internal/worker"
	"gorm.io/gorm"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   data,
	})
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"status":  "error",
		"message": message,
	})
}

// statusForError 业务错误映射为 HTTP 状态码
func statusForError(err error) int {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, service.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidScanType),
		errors.Is(err, service.ErrNoPackages),
		errors.Is(err, service.ErrInvalidPeriod),
		errors.Is(err, service.ErrInvalidFrequency),
		errors.Is(err, provider.ErrNoDevice):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrScanInProgress):
		return http.StatusConflict
	case errors.Is(err, provider.ErrRemovalUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, provider.ErrDeviceOffline):
		return http.StatusBadGateway
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrPoolStopped):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// parseID 解析路径中的数字 ID
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// queryLimit 读取 limit 参数，限制在 [1, max]
func queryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
