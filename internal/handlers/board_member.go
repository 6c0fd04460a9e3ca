package handlers

import (
	"github.com/coyote/taskboard/internal/middleware"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

type AddMemberRequest struct {
	Role models.BoardRole `json:"role" binding:"omitempty,board_role"`
}

type UpdateMemberRequest struct {
	Role models.BoardRole `json:"role" binding:"required,board_role"`
}

func (h *BoardHandler) ListMembers(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var page services.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	members, err := h.boards.ListMembers(c.Request.Context(), middleware.GetUserID(c), boardID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, members)
}

// AddMember adds the user in the path to the board. Role defaults to member.
func (h *BoardHandler) AddMember(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req AddMemberRequest
	if !bindPatch(c, &req) {
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}

	member, err := h.boards.AddMember(c.Request.Context(), middleware.GetUserID(c), boardID, userID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

func (h *BoardHandler) UpdateMember(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.boards.UpdateMember(c.Request.Context(), middleware.GetUserID(c), boardID, userID, req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, member)
}

func (h *BoardHandler) RemoveMember(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.boards.RemoveMember(c.Request.Context(), middleware.GetUserID(c), boardID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"board_id": boardID, "user_id": userID})
}
