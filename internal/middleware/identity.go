package middleware

import "github.com/gin-gonic/gin"

const (
	// IdentityHeader carries the acting user's id, as issued at login.
	// Session tokens and refresh are the shell's concern, not this core's.
	IdentityHeader = "X-User-ID"

	identityContextKey = "actingUserID"
)

// Identity copies the acting user's id from the request header into the gin
// context. It never rejects: mutating services fail Unauthenticated
// themselves when the identity is absent, so the check always runs on the
// same actor the write will use.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(identityContextKey, c.GetHeader(IdentityHeader))
		c.Next()
	}
}

// ActingUserID returns the acting user's id for this request, empty when
// unauthenticated.
func ActingUserID(c *gin.Context) string {
	return c.GetString(identityContextKey)
}
