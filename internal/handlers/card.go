package handlers

import (
	"github.com/coyote/taskboard/internal/middleware"
	"github.com/coyote/taskboard/internal/services"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	cards *services.CardService
}

func NewCardHandler(cards *services.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

func (h *CardHandler) Create(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var req services.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	card, err := h.cards.Create(c.Request.Context(), middleware.GetUserID(c), boardID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

func (h *CardHandler) List(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	var page services.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cards, err := h.cards.List(c.Request.Context(), middleware.GetUserID(c), boardID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cards)
}

func (h *CardHandler) Get(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "card_id")
	if !ok {
		return
	}

	card, err := h.cards.Get(c.Request.Context(), middleware.GetUserID(c), boardID, cardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, card)
}

func (h *CardHandler) Update(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "card_id")
	if !ok {
		return
	}
	var patch services.CardPatch
	if !bindPatch(c, &patch) {
		return
	}

	card, err := h.cards.Update(c.Request.Context(), middleware.GetUserID(c), boardID, cardID, &patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, card)
}

func (h *CardHandler) Delete(c *gin.Context) {
	boardID, ok := pathID(c, "board_id")
	if !ok {
		return
	}
	cardID, ok := pathID(c, "card_id")
	if !ok {
		return
	}

	if err := h.cards.Delete(c.Request.Context(), middleware.GetUserID(c), boardID, cardID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"id": cardID})
}
