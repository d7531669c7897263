package login

import (
	"github.com/gofiber/fiber/v3"

	"github.com/GoDirAuth/GoDirAuth/internal/config"
	"github.com/GoDirAuth/GoDirAuth/internal/web/handler"
	"github.com/GoDirAuth/GoDirAuth/internal/web/middleware/ldapauth"
)

const (
	// Path is the path to the login page.
	Path = handler.LoginPath

	// TemplateName is the name of the login template.
	TemplateName = "login"

	// errorParam marks the failure redirect of the login page, e.g. failureURL = "/login?error=invalidCredentials".
	errorParam = "error"
)

// Service is the login handler service.
type Service struct {
	cfg *config.Config
}

// Init registers GET and POST /login. POST runs the session login middleware.
func (s *Service) Init(app *fiber.App, deps handler.Dependencies) error {
	if app == nil {
		return handler.ErrMissingDependency
	}

	if err := deps.Validate(); err != nil {
		return err
	}

	if deps.Sessions == nil {
		return ErrSessionsMissing
	}

	s.cfg = deps.Config

	app.Get(Path, s.Get)
	app.Post(Path, ldapauth.NewSession(deps.LoginConfig()))

	return nil
}

// Get renders the login form, authenticated users are sent to the success page.
func (s *Service) Get(c fiber.Ctx) error {
	if _, ok := ldapauth.UserFromContext(c); ok {
		target := s.cfg.Login.SuccessURL
		if target == "" {
			target = handler.RootPath
		}

		return c.Redirect().Status(fiber.StatusFound).To(target)
	}

	bind := fiber.Map{
		"title":            s.cfg.Title,
		"usernameProperty": s.cfg.Login.UsernameProperty,
		"passwordProperty": s.cfg.Login.PasswordProperty,
		"prefix":           s.cfg.LDAP.UsernamePrefix,
	}

	if c.Query(errorParam) != "" {
		bind["error"] = "Invalid username or password"
	}

	return c.Render(TemplateName, bind)
}
