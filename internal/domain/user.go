package domain

// User represents a registered account. ID is backend-assigned: a local
// auto-increment rendered as a string for the relational store, an opaque
// uid for the document store. Owner comparisons treat it as an opaque token.
type User struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// DisplayName returns the user's first and last name joined for display.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
