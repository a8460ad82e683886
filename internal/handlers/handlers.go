package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/huangang/sdrdesk/internal/repository"
	"github.com/huangang/sdrdesk/internal/services"
	"github.com/huangang/sdrdesk/pkg/logger"
	"github.com/huangang/sdrdesk/pkg/response"
)

// writeServiceError maps service errors onto the admin envelope. Anything not
// recognised is logged and hidden behind a generic 500.
func writeServiceError(c *gin.Context, err error) {
	if appErr := classify(err); appErr != nil {
		response.Error(c, appErr)
		return
	}
	logger.Errorf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	response.Error(c, err)
}

func classify(err error) *response.AppError {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.NewBadRequest(verr.Error())
	case errors.Is(err, repository.ErrNotFound):
		return response.NewNotFound("not found")
	case errors.Is(err, services.ErrJobLocked), errors.Is(err, services.ErrUsernameTaken):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrSelfModification):
		return response.NewBadRequest(err.Error())
	case errors.Is(err, services.ErrAccessDenied):
		return response.NewUnauthorized(err.Error())
	}
	return nil
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.BadRequest(c, "invalid query parameters")
		return false
	}
	return true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, err.Error())
		return false
	}
	return true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
