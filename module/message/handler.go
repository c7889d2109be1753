package message

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"NewsWire/logger"
	"NewsWire/service/chat"
	"NewsWire/service/storage"
	"NewsWire/tools/decode"
)

// HTTP seam consumed by the CRUD layer. The gateway never persists or
// validates business rules; those happened before these endpoints are hit.

// HandlerNotify implements persist-then-notify: the caller has durably
// written the message row and asks for a best-effort live push. Always 202
// on a well-formed body; live delivery failing is not an error here.
func HandlerNotify(gw *chat.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		// Weakly-typed decode: the CRUD layer sends numeric ids as strings
		// or numbers depending on the caller.
		rec, err := decode.DecodeMap[chat.PersistedMessage](body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message record"})
			return
		}
		gw.NotifyLive(*rec)
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	}
}

// HandlerPresence answers isOnline/deviceCount for one identity.
func HandlerPresence(p *chat.PresenceTracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.Param("userId")
		c.JSON(http.StatusOK, gin.H{
			"userId":      user,
			"online":      p.IsOnline(user),
			"deviceCount": p.DeviceCount(user),
		})
	}
}

// HandlerPresenceBulk filters a list of identities down to the online ones.
func HandlerPresenceBulk(p *chat.PresenceTracker) gin.HandlerFunc {
	type req struct {
		UserIDs []string `json:"userIds"`
	}
	return func(c *gin.Context) {
		var body req
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"online": p.OnlineSubset(body.UserIDs)})
	}
}

// HandlerUnread serves the transitional unread counter kept for clients that
// still poll between reconnects.
func HandlerUnread(redisEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.Query("userId")
		if user == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing userId"})
			return
		}
		if !redisEnabled {
			c.JSON(http.StatusOK, gin.H{"userId": user, "unread": 0})
			return
		}
		n, err := storage.UnreadCount(user)
		if err != nil {
			logger.Warnf("[unread] count user=%s err=%v", user, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "counter unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": user, "unread": n})
	}
}

// HandlerSuperseded answers the deprecated SSE / polling endpoints: old
// clients get an explicit pointer at the live transport instead of silence.
func HandlerSuperseded(wsPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusGone, gin.H{
			"error":     "superseded",
			"message":   "this endpoint has been replaced by the live transport",
			"transport": wsPath,
		})
	}
}
