package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/auth"
	"github.com/wonkchat/wonk/internal/domain"
	"github.com/wonkchat/wonk/internal/store"
)

const userKey = "user"

// Authenticate resolves the session token to a UserIdentity and makes
// it available to handlers. The identity is cached in the user store so
// /users lookups can resolve it.
func Authenticate(authsvc *auth.Service, users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get("token").(string)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   true,
				"message": "Please sign in before continuing.",
			})
			return
		}
		user, err := authsvc.Verify(token)
		if err != nil {
			log.Warn().Err(err).Str("module", "adapters.http").Msg("rejected session token")
			session.Delete("token")
			_ = session.Save()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   true,
				"message": "Your previous token does not work anymore.",
			})
			return
		}
		users.Put(user)
		c.Set(userKey, user)
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.UserIdentity {
	return c.MustGet(userKey).(domain.UserIdentity)
}
