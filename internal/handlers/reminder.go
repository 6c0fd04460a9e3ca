package handlers

import (
	"time"

	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// ReminderHandler triggers a reminder scan on demand.
type ReminderHandler struct {
	reminders *services.ReminderService
	now       func() time.Time
}

func NewReminderHandler(reminders *services.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders, now: time.Now}
}

func (h *ReminderHandler) CardStart(c *gin.Context) {
	result, err := h.reminders.RunStartScan(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (h *ReminderHandler) CardFinish(c *gin.Context) {
	result, err := h.reminders.RunFinishScan(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
