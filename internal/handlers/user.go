package handlers

import (
	"github.com/coyote/taskboard/internal/middleware"
	"github.com/coyote/taskboard/internal/models"
	"github.com/coyote/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
)

// UserDetail is the public view of the authenticated user.
type UserDetail struct {
	*models.User
	FullName string `json:"full_name"`
}

// Me returns the authenticated user.
func Me(c *gin.Context) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Error(c, response.NewUnauthorized("not authenticated"))
		return
	}
	response.Success(c, UserDetail{User: user, FullName: user.FullName()})
}
