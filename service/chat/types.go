package chat

// Handler processes one inbound frame type.
type Handler interface {
	Type() string
	Handle(*Context, *Envelope, *Client) error
}

// Context hands the owning server to frame handlers.
type Context struct {
	S *Server
}
