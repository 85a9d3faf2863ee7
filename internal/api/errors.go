package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"go.uber.org/zap"
)

type errorResponse struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Errors  []string               `json:"errors"`
	Hint    string                 `json:"hint,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// writeError renders err in the error envelope. Causes of internal errors are
// only disclosed in debug mode.
func writeError(c *gin.Context, err error, debug bool) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal("Internal server error", err)
	}

	resp := errorResponse{
		Error:  appErr.Label,
		Errors: appErr.Reasons,
		Hint:   appErr.Hint,
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if len(appErr.Details) > 0 {
		resp.Details = make(map[string]interface{}, len(appErr.Details)+1)
		for k, v := range appErr.Details {
			resp.Details[k] = v
		}
	}
	if debug && appErr.Cause != nil {
		if resp.Details == nil {
			resp.Details = make(map[string]interface{}, 1)
		}
		resp.Details["cause"] = appErr.Cause.Error()
		if len(appErr.Reasons) == 0 {
			resp.Errors = []string{appErr.Cause.Error()}
		}
	}

	c.JSON(appErr.Status(), resp)
}

func (s *Server) fail(c *gin.Context, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error("Request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	writeError(c, err, s.cfg.Debug)
}
