package controllers

import (
	"errors"
	"net/http"
	"time"

	"focusonmeal/middlewares"
	"focusonmeal/services"
	"focusonmeal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type MealChatController struct {
	Widgets *services.WidgetRegistry
	RT      *services.RealtimeHub
}

func NewMealChatController(widgets *services.WidgetRegistry, rt *services.RealtimeHub) *MealChatController {
	return &MealChatController{Widgets: widgets, RT: rt}
}

type chatInput struct {
	Message string `form:"message" json:"message"`
}

type widgetResponse struct {
	View  services.View `json:"view"`
	Error string        `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// widget returns the session's widget, wiring realtime pushes the first time it is built.
func (mc *MealChatController) widget(c *gin.Context) *services.MealChatWidget {
	sid := middlewares.CurrentSession(c).ID
	w, created := mc.Widgets.Get(sid)
	if created {
		w.OnChange(func(v services.View) { mc.RT.BroadcastView(sid, v) })
	}
	return w
}

// GET /meal
func (mc *MealChatController) Page(c *gin.Context) {
	respond(c, http.StatusOK, "meal.tmpl", mc.widget(c).View())
}

// GET /meal/state
func (mc *MealChatController) State(c *gin.Context) {
	c.JSON(http.StatusOK, widgetResponse{View: mc.widget(c).View()})
}

// POST /meal/generate
func (mc *MealChatController) Generate(c *gin.Context) {
	var input services.MealPlanInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := mc.widget(c).Generate(c.Request.Context(), input)

	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, utils.ErrBiometricsOutOfRange):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrGenerateInFlight):
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
	}
	mc.reply(c, status, view, err)
}

// POST /meal/chat
func (mc *MealChatController) Chat(c *gin.Context) {
	var input chatInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	view, err := mc.widget(c).SendChat(input.Message)
	status := http.StatusOK
	if err != nil {
		status = http.StatusBadRequest
	}
	mc.reply(c, status, view, err)
}

// POST /meal/banner/dismiss
func (mc *MealChatController) DismissBanner(c *gin.Context) {
	mc.reply(c, http.StatusOK, mc.widget(c).DismissBanner(), nil)
}

// POST /meal/serving/open
func (mc *MealChatController) OpenServing(c *gin.Context) {
	mc.reply(c, http.StatusOK, mc.widget(c).OpenServingModal(), nil)
}

// POST /meal/serving/close
func (mc *MealChatController) CloseServing(c *gin.Context) {
	mc.reply(c, http.StatusOK, mc.widget(c).CloseServingModal(), nil)
}

// POST /meal/serving/increment
func (mc *MealChatController) IncrementServing(c *gin.Context) {
	view, err := mc.widget(c).IncrementServings()
	mc.reply(c, modalStatus(err), view, err)
}

// POST /meal/serving/decrement
func (mc *MealChatController) DecrementServing(c *gin.Context) {
	view, err := mc.widget(c).DecrementServings()
	mc.reply(c, modalStatus(err), view, err)
}

// POST /meal/serving/save
func (mc *MealChatController) SaveServing(c *gin.Context) {
	view, err := mc.widget(c).ConfirmSave()
	mc.reply(c, modalStatus(err), view, err)
}

// GET /meal/ws
func (mc *MealChatController) WS(c *gin.Context) {
	sid := middlewares.CurrentSession(c).ID
	mc.widget(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &services.WSClient{SessionID: sid, Conn: conn}
	mc.RT.Register(cl)

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(25 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := cl.Ping(); err != nil {
					return
				}
			}
		}
	}()

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			close(done)
			mc.RT.Unregister(cl)
			return
		}
	}
}

// reply answers API clients with the view and sends browsers back to the page.
func (mc *MealChatController) reply(c *gin.Context, status int, view services.View, err error) {
	if !middlewares.WantsJSON(c) {
		c.Redirect(http.StatusSeeOther, "/meal")
		return
	}
	resp := widgetResponse{View: view}
	if err != nil {
		resp.Error = view.Error
		if resp.Error == "" {
			resp.Error = err.Error()
		}
	}
	c.JSON(status, resp)
}

func modalStatus(err error) int {
	if errors.Is(err, services.ErrModalClosed) {
		return http.StatusConflict
	}
	return http.StatusOK
}
