package errs

// Close codes in the 4000+ range are application-defined per RFC 6455.
var (
	ErrUnauthenticated = NewCodeError(4401, "missing or empty identity")
	ErrBadHandshake    = NewCodeError(4400, "bad handshake")
	ErrTokenInvalid    = NewCodeError(4403, "invalid credential token")
)
