package domain

type TokenPair struct {
	Access  string
	Refresh string
}

// Principal identifies the caller behind a validated access token.
type Principal struct {
	UserID    int64
	Username  string
	SessionID string
}
