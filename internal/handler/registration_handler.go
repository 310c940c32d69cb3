package handler

import (
	"log/slog"
	"net/http"

	"Lee_Moments/internal/service"

	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	svc    *service.RegistrationService
	logger *slog.Logger
}

func NewRegistrationHandler(svc *service.RegistrationService, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, logger: logger}
}

// Register 报名，满员时进入候补
func (h *RegistrationHandler) Register(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reg, err := h.svc.JoinMoment(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}

func (h *RegistrationHandler) Mine(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reg, err := h.svc.GetRegistration(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}

func (h *RegistrationHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.CancelRegistration(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *RegistrationHandler) CheckIn(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	reg, err := h.svc.CheckIn(c.Request.Context(), id, userIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registration": reg})
}
