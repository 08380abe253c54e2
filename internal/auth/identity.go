package auth

// Identity is what a verified token says about its holder. It is bound to a
// connection at handshake time and never changes afterwards.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}
