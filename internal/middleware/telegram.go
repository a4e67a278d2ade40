package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flipnotify/backend/internal/service"
)

// Context keys set for handlers behind the Telegram signed-link check.
const (
	TelegramUserIDKey   = "telegram_user_id"
	TelegramUserNameKey = "telegram_user_name"
)

// AccessDeniedPath is where failed signed-link verifications are sent.
const AccessDeniedPath = "/access-denied"

// TelegramAuth verifies the four signed-link query parameters on every
// request. There is no session behind this: a request either carries a fresh
// valid signature or is redirected with a reason code.
func TelegramAuth(signer *service.LinkSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := signer.Verify(
			c.Query("user_id"),
			c.Query("user_name"),
			c.Query("timestamp"),
			c.Query("signature"),
		)
		if err != nil {
			c.Redirect(http.StatusFound, AccessDeniedPath+"?reason="+service.DenyReason(err))
			c.Abort()
			return
		}

		c.Set(TelegramUserIDKey, identity.UserID)
		c.Set(TelegramUserNameKey, identity.UserName)
		c.Next()
	}
}
