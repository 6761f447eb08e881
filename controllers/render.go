package controllers

import (
	"focusonmeal/middlewares"

	"github.com/gin-gonic/gin"
)

// respond writes JSON to API clients and the named page to browsers.
func respond(c *gin.Context, code int, page string, data any) {
	if middlewares.WantsJSON(c) {
		c.JSON(code, data)
		return
	}
	c.HTML(code, page, data)
}
