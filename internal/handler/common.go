package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"Lee_Moments/internal/errs"
	"Lee_Moments/internal/middleware"

	"github.com/gin-gonic/gin"
)

func userIDFromCtx(c *gin.Context) uint64 {
	id, _ := middleware.UserID(c)
	return id
}

// paramID 解析路径里的 id，失败时直接写 400
func paramID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"code": errs.CodeInvalidArgument, "msg": "invalid " + name})
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"code": errs.CodeInvalidArgument, "msg": "invalid params"})
}

// writeError 领域错误按 code 映射状态码，其余一律 500 且不暴露细节
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	code := errs.CodeOf(err)
	if code == errs.CodeUnknown {
		logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": code, "msg": "internal error"})
		return
	}
	c.JSON(code.HTTPStatus(), gin.H{"code": code, "msg": err.Error()})
}
