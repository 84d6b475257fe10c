package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error responses are JSON keyed by the offending field, with the
// status picking the class: 400 malformed/invalid, 404 not found,
// 409 conflict, 422 missing required fields.

func malformedId(c *gin.Context, name, value string) {
	c.JSON(http.StatusBadRequest, gin.H{name + "_id": value})
	c.Abort()
}

func invalidField(c *gin.Context, name, value string) {
	c.JSON(http.StatusBadRequest, gin.H{name: value})
	c.Abort()
}

func malformedBody(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"body": "could not parse request body"})
	c.Abort()
}

func notFound(c *gin.Context, name, value string) {
	c.JSON(http.StatusNotFound, gin.H{name: value})
	c.Abort()
}

func conflict(c *gin.Context, name, value string) {
	c.JSON(http.StatusConflict, gin.H{name: value})
	c.Abort()
}

func missingFields(c *gin.Context, fields ...string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"required": fields})
	c.Abort()
}
