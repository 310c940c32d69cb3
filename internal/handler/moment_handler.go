package handler

import (
	"log/slog"
	"net/http"

	"Lee_Moments/internal/service"

	"github.com/gin-gonic/gin"
)

type MomentHandler struct {
	svc    *service.MomentService
	logger *slog.Logger
}

func NewMomentHandler(svc *service.MomentService, logger *slog.Logger) *MomentHandler {
	return &MomentHandler{svc: svc, logger: logger}
}

func (h *MomentHandler) Create(c *gin.Context) {
	var req service.CreateMomentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	m, err := h.svc.CreateMoment(c.Request.Context(), userIDFromCtx(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moment": m})
}

// Get 按 slug 查询；GET 路由树里同一位置的通配符必须同名，所以 slug 也挂在 :id 上
func (h *MomentHandler) Get(c *gin.Context) {
	m, err := h.svc.GetMoment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moment": m})
}

func (h *MomentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateMomentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	m, err := h.svc.UpdateMoment(c.Request.Context(), id, userIDFromCtx(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moment": m})
}

func (h *MomentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteMoment(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *MomentHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.CancelMoment(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moment": m})
}

// AdminCancel 管理员接口，权限在 service 里按 users.role 判断
func (h *MomentHandler) AdminCancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	m, err := h.svc.AdminCancelMoment(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moment": m})
}
