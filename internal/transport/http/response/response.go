package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON shape of every failed request. Code repeats the HTTP
// status for clients that only see the body.
type ErrorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, ErrorBody{
		Error: message,
		Code:  httpStatus,
	})
}

// Notice reports an expected condition the caller should act on, such as an
// empty knowledge base, with a 200 status.
func Notice(c *gin.Context, message string) {
	c.JSON(http.StatusOK, ErrorBody{Error: message})
}
