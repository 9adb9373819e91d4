package server

import (
	"fmt"
	"log/slog"

	"scribe/internal/middleware"
	"scribe/internal/models"
	"scribe/internal/service"
	"scribe/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// RegisterPage handles GET /register
func (s *Server) RegisterPage(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}
	return s.render(c, fiber.StatusOK, "register", pageData{Title: "Register"})
}

// Register handles POST /register
func (s *Server) Register(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}

	var form validation.RegistrationForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	form.Normalize()

	page := pageData{
		Title:  "Register",
		Form:   formValues{Username: form.Username, Email: form.Email},
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		return s.render(c, fiber.StatusBadRequest, "register", page)
	}

	user, err := s.userService.Register(c.UserContext(), service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
	})
	if err != nil {
		if models.HasCode(err, models.CodeValidation) {
			page.Errors.Add(fieldForTaken(err), err.Error())
			return s.render(c, fiber.StatusBadRequest, "register", page)
		}
		return err
	}

	return redirectWithFlash(c, "/login", middleware.FlashSuccess,
		fmt.Sprintf("Account created for %s! You can now log in", user.Username))
}

// LoginPage handles GET /login
func (s *Server) LoginPage(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}
	return s.render(c, fiber.StatusOK, "login", pageData{
		Title: "Login",
		Next:  safeNext(c.Query("next")),
	})
}

// Login handles POST /login
func (s *Server) Login(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}

	var form validation.LoginForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}

	next := safeNext(c.Query("next"))
	page := pageData{
		Title:  "Login",
		Next:   next,
		Form:   formValues{Email: form.Email},
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		return s.render(c, fiber.StatusBadRequest, "login", page)
	}

	user, err := s.userService.Authenticate(c.UserContext(), form.Email, form.Password)
	if err != nil {
		if models.HasCode(err, models.CodeUnauthorized) {
			middleware.SetFlash(c, middleware.FlashDanger, service.MsgLoginFailed)
			return s.render(c, fiber.StatusOK, "login", page)
		}
		return err
	}

	session, err := s.sessions.Start(user.ID, form.RememberMe())
	if err != nil {
		return err
	}
	middleware.SetSessionCookie(c, session.Token, session.Expires, s.config.IsProduction())

	target := "/"
	if next != "" {
		target = next
	}
	return redirectWithFlash(c, target, middleware.FlashSuccess, "You have been logged in!")
}

// Logout handles GET /logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims := middleware.SessionClaims(c); claims != nil {
		if err := s.sessions.End(c.UserContext(), claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "session revocation failed",
				slog.String("error", err.Error()))
		}
	}
	middleware.ClearSessionCookie(c)
	return redirectWithFlash(c, "/", middleware.FlashInfo, "You have been logged out.")
}

// AccountPage handles GET /account
func (s *Server) AccountPage(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return s.staleSession(c, err)
	}
	return s.render(c, fiber.StatusOK, "account", pageData{
		Title: "Account",
		User:  user,
		Form:  formValues{Username: user.Username, Email: user.Email},
	})
}

// UpdateAccount handles POST /account
func (s *Server) UpdateAccount(c *fiber.Ctx) error {
	user, err := s.userService.GetUser(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return s.staleSession(c, err)
	}

	var form validation.AccountForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}
	form.Normalize()

	page := pageData{
		Title:  "Account",
		User:   user,
		Form:   formValues{Username: form.Username, Email: form.Email},
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		return s.render(c, fiber.StatusBadRequest, "account", page)
	}

	if _, err := s.userService.UpdateAccount(c.UserContext(), service.UpdateAccountInput{
		UserID:   user.ID,
		Username: form.Username,
		Email:    form.Email,
	}); err != nil {
		if models.HasCode(err, models.CodeValidation) {
			page.Errors.Add(fieldForTaken(err), err.Error())
			return s.render(c, fiber.StatusBadRequest, "account", page)
		}
		return err
	}

	return redirectWithFlash(c, "/account", middleware.FlashSuccess, "Account updated successfully!")
}

// RequestResetPage handles GET /reset_password
func (s *Server) RequestResetPage(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}
	return s.render(c, fiber.StatusOK, "request_reset", pageData{Title: "Reset Password"})
}

// RequestReset handles POST /reset_password
func (s *Server) RequestReset(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}

	var form validation.ResetRequestForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}

	page := pageData{
		Title:  "Reset Password",
		Form:   formValues{Email: form.Email},
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		return s.render(c, fiber.StatusBadRequest, "request_reset", page)
	}

	user, err := s.userService.RequestPasswordReset(c.UserContext(), form.Email)
	if err != nil {
		if models.HasCode(err, models.CodeValidation) {
			middleware.SetFlash(c, middleware.FlashDanger, service.MsgNoSuchAccount)
			return s.render(c, fiber.StatusOK, "request_reset", page)
		}
		return err
	}

	return redirectWithFlash(c, "/login", middleware.FlashInfo,
		fmt.Sprintf("Password reset email sent to %s!", user.Email))
}

// ResetPasswordPage handles GET /reset_password/:token
func (s *Server) ResetPasswordPage(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}
	token := c.Params("token")
	if _, err := s.userService.VerifyResetToken(c.UserContext(), token); err != nil {
		return failPage(c, err, service.MsgInvalidToken)
	}
	return s.render(c, fiber.StatusOK, "reset_password", pageData{
		Title: "Reset Password",
		Token: token,
	})
}

// ResetPassword handles POST /reset_password/:token
func (s *Server) ResetPassword(c *fiber.Ctx) error {
	if middleware.UserID(c) != "" {
		return c.Redirect("/")
	}
	token := c.Params("token")

	var form validation.ResetPasswordForm
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid form submission")
	}

	page := pageData{
		Title:  "Reset Password",
		Token:  token,
		Errors: form.Validate(),
	}
	if page.Errors.Any() {
		if _, err := s.userService.VerifyResetToken(c.UserContext(), token); err != nil {
			return failPage(c, err, service.MsgInvalidToken)
		}
		return s.render(c, fiber.StatusBadRequest, "reset_password", page)
	}

	if _, err := s.userService.ResetPassword(c.UserContext(), token, form.Password); err != nil {
		return failPage(c, err, service.MsgInvalidToken)
	}

	return redirectWithFlash(c, "/login", middleware.FlashSuccess,
		"Your password has been updated! You can now log in")
}

// staleSession handles a session whose user no longer resolves.
func (s *Server) staleSession(c *fiber.Ctx, err error) error {
	if !models.IsNotFound(err) {
		return err
	}
	middleware.ClearSessionCookie(c)
	return redirectWithFlash(c, "/login", middleware.FlashInfo, service.MsgLoginRequired)
}

// fieldForTaken picks the form field a uniqueness error belongs to.
func fieldForTaken(err error) string {
	if models.HasCode(err, models.CodeValidation) && err.Error() == service.MsgEmailTaken {
		return "email"
	}
	return "username"
}
