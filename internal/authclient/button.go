package authclient

// Button is the display state of the login/logout toggle.
type Button struct {
	LoggedIn  bool
	Label     string
	Class     string
	Title     string
	AriaLabel string
}

// ButtonFor returns the toggle state for username; an empty name means logged out.
func ButtonFor(username string) Button {
	if username == "" {
		return Button{
			LoggedIn:  false,
			Label:     "Login",
			Class:     "btn-primary",
			Title:     "Login to your account",
			AriaLabel: "Login",
		}
	}
	return Button{
		LoggedIn:  true,
		Label:     "Logout",
		Class:     "btn-danger",
		Title:     "Logged in as " + username,
		AriaLabel: "Logout",
	}
}
