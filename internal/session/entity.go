package session

// Session is a persisted login. ExpiresAt is epoch milliseconds.
type Session struct {
	Token     string `db:"token"`
	UserID    int64  `db:"user_id"`
	ExpiresAt int64  `db:"expires_at"`
}
