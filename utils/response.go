package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type FieldErrorResponse struct {
	Errors []FieldError `json:"errors"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Results *int        `json:"results,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SendError writes the uniform failure envelope for err.
func SendError(c *gin.Context, err *AppError) {
	if len(err.Fields) > 0 {
		c.JSON(err.Status, FieldErrorResponse{Errors: err.Fields})
		return
	}
	c.JSON(err.Status, ErrorResponse{
		Status:  err.StatusText(),
		Message: err.Message,
	})
}

func SendMessage(c *gin.Context, status int, message string) {
	c.JSON(status, SuccessResponse{Status: "success", Message: message})
}

// SendData wraps data as {status, data: {data}}.
func SendData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, SuccessResponse{
		Status: "success",
		Data:   gin.H{"data": data},
	})
}

// SendList is SendData with a results count.
func SendList(c *gin.Context, data interface{}, count int) {
	c.JSON(http.StatusOK, SuccessResponse{
		Status:  "success",
		Results: &count,
		Data:    gin.H{"data": data},
	})
}

func SendNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
