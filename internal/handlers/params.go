package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// pathID parses a positive numeric path parameter. On failure it writes a
// 400 and returns false.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// bindPatch decodes a JSON patch body. An empty body is an empty patch.
func bindPatch(c *gin.Context, patch interface{}) bool {
	if err := c.ShouldBindJSON(patch); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}
