package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// LoginPath is the path of the login page.
	LoginPath = RootPath + "login"

	// LogoutPath is the path of the logout handler.
	LogoutPath = RootPath + "logout"

	// APIPath is the prefix of the JSON API.
	APIPath = RootPath + "api"

	// ErrNilDepsFatalLogMsg is used if app or a required dependency is nil.
	ErrNilDepsFatalLogMsg = "app or a handler dependency is nil"
)
