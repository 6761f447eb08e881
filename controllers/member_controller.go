package controllers

import (
	"errors"
	"log"
	"net/http"

	"focusonmeal/middlewares"
	"focusonmeal/services"

	"github.com/gin-gonic/gin"
)

type MemberController struct {
	Deletion      *services.AccountDeletionService
	Widgets       *services.WidgetRegistry
	SecureCookies bool
}

func NewMemberController(deletion *services.AccountDeletionService, widgets *services.WidgetRegistry, secure bool) *MemberController {
	return &MemberController{Deletion: deletion, Widgets: widgets, SecureCookies: secure}
}

type deletePage struct {
	ConfirmPhrase string `json:"confirm_phrase"`
	Error         string `json:"error,omitempty"`
}

type deleteConfirmPage struct {
	Nonce string
}

// GET /member/delete
func (mc *MemberController) DeleteForm(c *gin.Context) {
	respond(c, http.StatusOK, "member_delete.tmpl", deletePage{ConfirmPhrase: services.DeletionConfirmPhrase})
}

// POST /member/delete
func (mc *MemberController) Delete(c *gin.Context) {
	var input services.DeletionInput
	if err := c.ShouldBind(&input); err != nil {
		mc.fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	sess := middlewares.CurrentSession(c)
	sessionID := sess.ID

	// the prompt page posts back a nonce; the password never leaves the server
	if input.Nonce != "" {
		staged, err := mc.Deletion.Resume(sessionID, input.Nonce)
		if err != nil {
			mc.fail(c, http.StatusBadRequest, "The confirmation expired. Please fill in the form again.")
			return
		}
		staged.Confirmed = input.Confirmed
		input = staged
	}

	// browsers get the yes/no prompt page between the form and the real request
	if !input.Confirmed && !middlewares.WantsJSON(c) {
		if nonce, err := mc.Deletion.Stage(sessionID, input); err == nil {
			c.HTML(http.StatusOK, "member_delete_confirm.tmpl", deleteConfirmPage{Nonce: nonce})
			return
		}
	}

	err := mc.Deletion.Delete(c.Request.Context(), sess, input)

	var delErr *services.DeletionError
	switch {
	case err == nil:
	case errors.Is(err, services.ErrPasswordRequired):
		mc.fail(c, http.StatusBadRequest, "Please enter your password.")
		return
	case errors.Is(err, services.ErrConfirmMismatch):
		mc.fail(c, http.StatusBadRequest, "Please type \""+services.DeletionConfirmPhrase+"\" exactly.")
		return
	case errors.Is(err, services.ErrNotConfirmed):
		mc.fail(c, http.StatusBadRequest, "Account deletion was not confirmed.")
		return
	case errors.Is(err, services.ErrDeletionInFlight):
		mc.fail(c, http.StatusConflict, "Account deletion is already in progress.")
		return
	case errors.Is(err, services.ErrNotLoggedIn):
		mc.fail(c, http.StatusUnauthorized, "login required")
		return
	case errors.As(err, &delErr):
		mc.fail(c, upstreamStatus(delErr.Err), delErr.Message)
		return
	default:
		log.Printf("delete member: %v", err)
		mc.fail(c, http.StatusInternalServerError, "Failed to delete your account. Please try again.")
		return
	}

	mc.Widgets.Drop(sessionID)
	middlewares.ExpireSessionCookie(c, mc.SecureCookies)
	if middlewares.WantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "account deleted", "redirect": "/"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (mc *MemberController) fail(c *gin.Context, code int, msg string) {
	respond(c, code, "member_delete.tmpl", deletePage{
		ConfirmPhrase: services.DeletionConfirmPhrase,
		Error:         msg,
	})
}

// upstreamStatus keeps 4xx answers from the backend and reports anything else as 502.
func upstreamStatus(err error) int {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
