package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"Lee_Moments/internal/service"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	svc    *service.CommentService
	logger *slog.Logger
}

type commentReq struct {
	Content string `json:"content"`
}

func NewCommentHandler(svc *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{svc: svc, logger: logger}
}

func (h *CommentHandler) Add(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req commentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}
	cm, err := h.svc.AddComment(c.Request.Context(), id, userIDFromCtx(c), req.Content)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": cm})
}

// List 游标分页：?cursor=上一页 next_cursor&limit=20
func (h *CommentHandler) List(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	cursor, _ := strconv.ParseUint(c.Query("cursor"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	page, err := h.svc.ListComments(c.Request.Context(), id, cursor, limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"list": page.Comments, "next_cursor": page.NextCursor})
}

func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteComment(c.Request.Context(), id, userIDFromCtx(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "ok"})
}
