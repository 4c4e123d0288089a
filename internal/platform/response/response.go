package response

import (
	"net/http"

	"github.com/civicpulse/service-emergency/internal/domain"
	"github.com/gin-gonic/gin"
)

// Success writes a 200 with the payload under "data".
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Created writes a 201 with the payload under "data".
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// Paginated writes a 200 with items and pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"data": items,
		"pagination": gin.H{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// Error maps a domain error to its HTTP status. Unclassified errors become 500s
// without leaking internals.
func Error(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	status, exposed := http.StatusInternalServerError, "internal server error"
	switch code {
	case domain.CodeValidation:
		status, exposed = http.StatusBadRequest, err.Error()
	case domain.CodeNotFound:
		status, exposed = http.StatusNotFound, err.Error()
	case domain.CodeInvalidState:
		status, exposed = http.StatusUnprocessableEntity, err.Error()
	case domain.CodeConflict:
		status, exposed = http.StatusConflict, err.Error()
	case domain.CodeForbidden:
		status, exposed = http.StatusForbidden, err.Error()
	case domain.CodeUnauthorized:
		status, exposed = http.StatusUnauthorized, err.Error()
	case domain.CodeUnavailable:
		status, exposed = http.StatusBadGateway, err.Error()
	}
	body := gin.H{"error": exposed}
	if code != "" {
		body["code"] = string(code)
	}
	c.JSON(status, body)
}
