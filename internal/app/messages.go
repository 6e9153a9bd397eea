package app

// AuthActionMsg reports the outcome of a sign-in or sign-out request. The
// identity change itself arrives separately through the auth session.
type AuthActionMsg struct {
	SignOut bool
	Err     error
}
