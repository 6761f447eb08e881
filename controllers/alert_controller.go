package controllers

import (
	"errors"
	"net/http"

	"focusonmeal/services"

	"github.com/gin-gonic/gin"
)

type AlertController struct {
	Alerts *services.AlertViewService
}

func NewAlertController(alerts *services.AlertViewService) *AlertController {
	return &AlertController{Alerts: alerts}
}

// GET /board/safety/detail/:id
func (ac *AlertController) Detail(c *gin.Context) {
	view, err := ac.Alerts.Load(c.Request.Context(), c.Param("id"))
	status := http.StatusOK
	switch {
	case errors.Is(err, services.ErrInvalidAlertID):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrAlertNotFound):
		status = http.StatusNotFound
	}
	respond(c, status, "alert_detail.tmpl", view)
}
