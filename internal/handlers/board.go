package handlers

import (
	"github.com/coyote/taskboard/internal/middleware"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// BoardHandler serves boards and their memberships. Authorization is
// decided by BoardService from the authenticated user.
type BoardHandler struct {
	boards *services.BoardService
}

func NewBoardHandler(boards *services.BoardService) *BoardHandler {
	return &BoardHandler{boards: boards}
}

func (h *BoardHandler) Create(c *gin.Context) {
	var req services.CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	board, err := h.boards.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, board)
}

// List returns the caller's boards, filtered by search and role.
func (h *BoardHandler) List(c *gin.Context) {
	var req services.BoardListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	page, err := h.boards.List(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

func (h *BoardHandler) Get(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	board, err := h.boards.Get(c.Request.Context(), middleware.GetUserID(c), boardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, board)
}

// Update applies a partial update. Absent fields are kept, null clears
// nullable fields.
func (h *BoardHandler) Update(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var patch services.BoardPatch
	if !bindPatch(c, &patch) {
		return
	}

	board, err := h.boards.Update(c.Request.Context(), middleware.GetUserID(c), boardID, &patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, board)
}

func (h *BoardHandler) Delete(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}

	if err := h.boards.Delete(c.Request.Context(), middleware.GetUserID(c), boardID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": boardID, "status": models.BoardDeleted})
}
