package message_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"NewsWire/module/message"
	"NewsWire/service/chat"
)

func newPresence(users ...string) *chat.PresenceTracker {
	reg := chat.NewRegistry()
	for i, u := range users {
		reg.Register(u, chat.NewClient("c"+u+string(rune('0'+i)), u, nil, 1))
	}
	return chat.NewPresenceTracker(reg)
}

func doJSON(t *testing.T, h gin.HandlerFunc, method, path, body string, register func(*gin.Engine)) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	register(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("response not JSON: %v (%s)", err, w.Body.String())
	}
	return w, got
}

func TestHandlerNotify(t *testing.T) {
	reg := chat.NewRegistry()
	rt := chat.NewRouter(reg, "gw-test", func(user string, c *chat.Client) {})
	gw := chat.NewGateway(rt)

	alice := chat.NewClient("a1", "alice", nil, 8)
	reg.Register("alice", alice)

	h := message.HandlerNotify(gw)
	// numeric createdAt arrives as float or string depending on the caller
	body := `{"id":"m-1","senderId":"bob","receiverId":"alice","content":"hi","createdAt":"1700000000000"}`
	w, _ := doJSON(t, h, http.MethodPost, "/notify", body, func(r *gin.Engine) {
		r.POST("/notify", h)
	})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	select {
	case payload := <-alice.Send:
		env, err := chat.ParseEnvelope(payload)
		if err != nil || env.Content != "hi" || env.SenderID != "bob" {
			t.Fatalf("pushed = %s err=%v", payload, err)
		}
	default:
		t.Fatal("nothing pushed to recipient")
	}

	// offline recipient is still 202: live push is advisory
	w, _ = doJSON(t, h, http.MethodPost, "/notify",
		`{"id":"m-2","senderId":"bob","receiverId":"nobody","content":"x"}`,
		func(r *gin.Engine) { r.POST("/notify", h) })
	if w.Code != http.StatusAccepted {
		t.Fatalf("offline notify status = %d, want 202", w.Code)
	}

	w, _ = doJSON(t, h, http.MethodPost, "/notify", `{broken`, func(r *gin.Engine) {
		r.POST("/notify", h)
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body status = %d, want 400", w.Code)
	}
}

func TestHandlerPresence(t *testing.T) {
	h := message.HandlerPresence(newPresence("alice"))
	w, got := doJSON(t, h, http.MethodGet, "/presence/alice", "", func(r *gin.Engine) {
		r.GET("/presence/:userId", h)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got["online"] != true || got["deviceCount"] != float64(1) {
		t.Fatalf("body = %v", got)
	}

	_, got = doJSON(t, h, http.MethodGet, "/presence/ghost", "", func(r *gin.Engine) {
		r.GET("/presence/:userId", h)
	})
	if got["online"] != false {
		t.Fatalf("ghost body = %v", got)
	}
}

func TestHandlerPresenceBulk(t *testing.T) {
	h := message.HandlerPresenceBulk(newPresence("alice", "bob"))
	w, got := doJSON(t, h, http.MethodPost, "/presence/online",
		`{"userIds":["alice","ghost","bob"]}`,
		func(r *gin.Engine) { r.POST("/presence/online", h) })
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	online, _ := got["online"].([]any)
	if len(online) != 2 || online[0] != "alice" || online[1] != "bob" {
		t.Fatalf("online = %v", got["online"])
	}
}

func TestHandlerUnreadDisabled(t *testing.T) {
	h := message.HandlerUnread(false)
	w, got := doJSON(t, h, http.MethodGet, "/unread?userId=alice", "", func(r *gin.Engine) {
		r.GET("/unread", h)
	})
	if w.Code != http.StatusOK || got["unread"] != float64(0) {
		t.Fatalf("status=%d body=%v", w.Code, got)
	}

	w, _ = doJSON(t, h, http.MethodGet, "/unread", "", func(r *gin.Engine) {
		r.GET("/unread", h)
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing userId status = %d, want 400", w.Code)
	}
}

func TestHandlerSuperseded(t *testing.T) {
	h := message.HandlerSuperseded("/ws")
	w, got := doJSON(t, h, http.MethodGet, "/events", "", func(r *gin.Engine) {
		r.GET("/events", h)
	})
	if w.Code != http.StatusGone {
		t.Fatalf("status = %d, want 410", w.Code)
	}
	if got["transport"] != "/ws" || got["error"] != "superseded" {
		t.Fatalf("body = %v", got)
	}
}
