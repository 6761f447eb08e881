package routes

import (
	"time"

	"focusonmeal/controllers"
	"focusonmeal/middlewares"
	"focusonmeal/services"
	"focusonmeal/web"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies is everything the router wires into controllers.
type Dependencies struct {
	SessionSecret []byte
	SecureCookies bool
	CORSOrigins   []string

	Sessions *services.SessionService
	Alerts   *services.AlertViewService
	Deletion *services.AccountDeletionService
	Widgets  *services.WidgetRegistry
	RT       *services.RealtimeHub
	Proxy    *services.DevProxy
}

func SetupRouter(d Dependencies) (*gin.Engine, error) {
	r := gin.Default()

	tmpl, err := web.Templates()
	if err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(tmpl)

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	sessionCtl := controllers.NewSessionController(d.Sessions, d.Widgets, d.SessionSecret, d.SecureCookies)
	alertCtl := controllers.NewAlertController(d.Alerts)
	memberCtl := controllers.NewMemberController(d.Deletion, d.Widgets, d.SecureCookies)
	mealCtl := controllers.NewMealChatController(d.Widgets, d.RT)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Pages backed by a session
	app := r.Group("/")
	app.Use(middlewares.SessionMiddleware(d.Sessions, d.SessionSecret, d.SecureCookies))
	{
		app.GET("/", sessionCtl.Home)
		app.GET("/member/login", sessionCtl.LoginForm)
		app.POST("/session/login", sessionCtl.Login)
		app.POST("/session/logout", sessionCtl.Logout)

		app.GET("/board/safety/detail/:id", alertCtl.Detail)

		meal := app.Group("/meal")
		{
			meal.GET("", mealCtl.Page)
			meal.GET("/state", mealCtl.State)
			meal.GET("/ws", mealCtl.WS)
			meal.POST("/generate", mealCtl.Generate)
			meal.POST("/chat", mealCtl.Chat)
			meal.POST("/banner/dismiss", mealCtl.DismissBanner)
			meal.POST("/serving/open", mealCtl.OpenServing)
			meal.POST("/serving/close", mealCtl.CloseServing)
			meal.POST("/serving/increment", mealCtl.IncrementServing)
			meal.POST("/serving/decrement", mealCtl.DecrementServing)
			meal.POST("/serving/save", mealCtl.SaveServing)
		}

		member := app.Group("/member")
		member.Use(middlewares.RequireLogin())
		{
			member.GET("/delete", memberCtl.DeleteForm)
			member.POST("/delete", memberCtl.Delete)
		}
	}

	// Everything else goes through the dev proxy table.
	if d.Proxy != nil {
		r.NoRoute(func(c *gin.Context) {
			if !d.Proxy.Forward(c.Writer, c.Request) {
				c.JSON(404, gin.H{"error": "not found"})
			}
		})
	}

	return r, nil
}
