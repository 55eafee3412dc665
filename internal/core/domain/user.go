package domain

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	Manager      *ManagerProfile
}

// ManagerProfile is created together with its User and never exists on its own.
type ManagerProfile struct {
	UserID      int64
	PhoneNumber string
}

func (u User) PhoneNumber() string {
	if u.Manager == nil {
		return ""
	}
	return u.Manager.PhoneNumber
}
