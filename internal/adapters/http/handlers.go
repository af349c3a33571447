package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/attachments"
	"github.com/wonkchat/wonk/internal/auth"
	"github.com/wonkchat/wonk/internal/gateway"
	"github.com/wonkchat/wonk/internal/store"
)

// API bundles the handler dependencies.
type API struct {
	GW     *gateway.Service
	Auth   *auth.Service
	Users  store.UserStore
	Attach *attachments.Store
}

func respondError(c *gin.Context, err error) {
	var ge *gateway.Error
	if errors.As(err, &ge) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   true,
			"message": ge.Message,
			"code":    ge.Code,
		})
		return
	}
	log.Error().Err(err).Str("module", "adapters.http").Msg("unexpected handler error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": true, "message": "Internal error"})
}

func (a *API) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" form:"username"`
		Password string `json:"password" form:"password"`
	}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid body"})
		return
	}
	token, user, err := a.Auth.IssueGuest(req.Username)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": true, "message": "Invalid username"})
		return
	}
	a.Users.Put(user)

	session := sessions.Default(c)
	session.Set("token", token)
	if err := session.Save(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": user})
}

func (a *API) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) createRoom(c *gin.Context) {
	if err := a.GW.CreateRoom(c.Param("name"), ""); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) joinRoom(c *gin.Context) {
	room, err := a.GW.JoinRoom(currentUser(c), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":        room.Name,
		"description": room.Description,
	})
}

func (a *API) leaveRoom(c *gin.Context) {
	if err := a.GW.LeaveRoom(currentUser(c), c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) listMembers(c *gin.Context) {
	members, err := a.GW.ListMembers(currentUser(c), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (a *API) sendMessage(c *gin.Context) {
	// Pointers distinguish "missing field" (invalid body) from values
	// that merely fail content rules (invalid content).
	var req struct {
		Content     *string  `json:"content"`
		Attachments []string `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Content == nil {
		respondError(c, gateway.ErrInvalidBody)
		return
	}
	if err := a.GW.SendMessage(currentUser(c), c.Param("name"), *req.Content, req.Attachments); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) setTyping(c *gin.Context) {
	var req struct {
		Typing *bool `json:"typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Typing == nil {
		respondError(c, gateway.ErrInvalidBody)
		return
	}
	if err := a.GW.SetTyping(currentUser(c), c.Param("name"), *req.Typing); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (a *API) lookupUsers(c *gin.Context) {
	rawIDs := c.Query("ids")
	if rawIDs == "" {
		respondError(c, gateway.ErrMissingIDs)
		return
	}
	users, err := a.GW.LookupUsers(currentUser(c).ID, strings.Split(rawIDs, ","), c.Query("subscribe"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (a *API) syncClient(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": a.GW.SyncRooms(currentUser(c))})
}

func (a *API) uploadAttachment(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, gateway.ErrInvalidBody)
		return
	}
	src, err := file.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer src.Close()
	path, err := a.Attach.Save(file.Filename, src)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "path": path})
}

func (a *API) serveAttachment(c *gin.Context) {
	path, err := a.Attach.Resolve(c.Param("id"), c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": true, "message": "Attachment not found"})
		return
	}
	c.File(path)
}
