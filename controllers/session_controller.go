package controllers

import (
	"log"
	"net/http"

	"focusonmeal/middlewares"
	"focusonmeal/services"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Sessions      *services.SessionService
	Widgets       *services.WidgetRegistry
	Secret        []byte
	SecureCookies bool
}

func NewSessionController(sessions *services.SessionService, widgets *services.WidgetRegistry, secret []byte, secure bool) *SessionController {
	return &SessionController{Sessions: sessions, Widgets: widgets, Secret: secret, SecureCookies: secure}
}

type loginPage struct {
	Error string `json:"error,omitempty"`
}

type loginInput struct {
	MemberID string `form:"memberId" json:"memberId" binding:"required"`
	Password string `form:"memberPw" json:"memberPw" binding:"required"`
}

// GET /
func (sc *SessionController) Home(c *gin.Context) {
	sess := middlewares.CurrentSession(c)
	respond(c, http.StatusOK, "home.tmpl", gin.H{
		"LoggedIn": sess.LoggedIn(),
		"Nickname": sess.MemberNickname,
		"IsAdmin":  sess.IsAdmin(),
	})
}

// GET /member/login
func (sc *SessionController) LoginForm(c *gin.Context) {
	respond(c, http.StatusOK, "login.tmpl", loginPage{})
}

// POST /session/login
func (sc *SessionController) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBind(&input); err != nil {
		respond(c, http.StatusBadRequest, "login.tmpl", loginPage{Error: "member id and password are required"})
		return
	}

	sess := middlewares.CurrentSession(c)
	anonID := sess.ID
	err := sc.Sessions.Login(c.Request.Context(), sess, services.LoginRequest{
		MemberID: input.MemberID,
		Password: input.Password,
	})
	if err != nil {
		log.Printf("login %s: %v", input.MemberID, err)
		msg := services.ServerMessage(err)
		if msg == "" {
			msg = "Login failed. Please check your id and password."
		}
		respond(c, http.StatusUnauthorized, "login.tmpl", loginPage{Error: msg})
		return
	}

	sc.Widgets.Drop(anonID)
	if err := middlewares.IssueSessionCookie(c, sess.ID, sc.Secret, sc.SecureCookies); err != nil {
		log.Printf("login %s: sign cookie: %v", input.MemberID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}

	if middlewares.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{
			"memberId":       sess.MemberID,
			"memberNickname": sess.MemberNickname,
			"adminYn":        sess.AdminYN,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// POST /session/logout
func (sc *SessionController) Logout(c *gin.Context) {
	sess := middlewares.CurrentSession(c)
	if err := sc.Sessions.Logout(c.Request.Context(), sess); err != nil {
		log.Printf("logout: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}
	sc.Widgets.Drop(sess.ID)
	middlewares.ExpireSessionCookie(c, sc.SecureCookies)
	if middlewares.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"redirect": "/"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}
