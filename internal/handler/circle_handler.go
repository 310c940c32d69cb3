package handler

import (
	"log/slog"
	"net/http"

	"Lee_Moments/internal/service"

	"github.com/gin-gonic/gin"
)

type CircleHandler struct {
	svc    *service.CircleService
	logger *slog.Logger
}

func NewCircleHandler(svc *service.CircleService, logger *slog.Logger) *CircleHandler {
	return &CircleHandler{svc: svc, logger: logger}
}

func (h *CircleHandler) Create(c *gin.Context) {
	var req service.CreateCircleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	circle, err := h.svc.CreateCircle(c.Request.Context(), userIDFromCtx(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle})
}

func (h *CircleHandler) Get(c *gin.Context) {
	circle, err := h.svc.GetCircle(c.Request.Context(), c.Param("slug"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle})
}

func (h *CircleHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateCircleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	circle, err := h.svc.UpdateCircle(c.Request.Context(), id, userIDFromCtx(c), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle})
}

func (h *CircleHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCircle(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}

func (h *CircleHandler) Join(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	member, err := h.svc.JoinCircle(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"membership": member})
}

// Leave 退出 circle，返回被取消和递补的报名数
func (h *CircleHandler) Leave(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.LeaveCircle(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *CircleHandler) Follow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.FollowCircle(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (h *CircleHandler) Unfollow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.UnfollowCircle(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}
