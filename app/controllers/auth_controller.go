package controllers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/avatar"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID uint, email, role string) (string, error)
}

// AuthController handles local and OAuth sign-in.
type AuthController struct {
	users  repository.UserRepository
	tokens TokenIssuer
}

func NewAuthController(users repository.UserRepository, tokens TokenIssuer) *AuthController {
	return &AuthController{users: users, tokens: tokens}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=150"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userView struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func newUserView(u *models.User) userView {
	return userView{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, AvatarURL: avatar.URL(u.AvatarURL, u.Email, 0)}
}

// HandleRegister creates a student account and returns a token.
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := ac.users.GetByEmail(email); err == nil {
		return jsonError(c, fiber.StatusConflict, "email_taken", "email is already registered")
	} else if !isNotFound(err) {
		log.Errorf("[Auth] lookup %s: %v", email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}

	user, err := models.CreateUser(req.Name, email, req.Password)
	if err != nil {
		return badRequest(c, err)
	}
	if err := ac.users.Create(user); err != nil {
		log.Errorf("[Auth] create user %s: %v", email, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "registration failed")
	}
	log.Infof("[Auth] registered user %d", user.ID)
	return ac.respondWithToken(c, fiber.StatusCreated, user)
}

// HandleLogin checks email and password.
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}

	user, err := ac.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || !user.CheckPassword(req.Password) {
		if err != nil && !isNotFound(err) {
			log.Errorf("[Auth] login lookup: %v", err)
		}
		return jsonError(c, fiber.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	}
	if !user.IsActive() {
		return jsonError(c, fiber.StatusForbidden, "account_disabled", "account is disabled")
	}

	user.TouchLogin()
	if err := ac.users.Update(user); err != nil {
		log.Warnf("[Auth] update last login for user %d: %v", user.ID, err)
	}
	return ac.respondWithToken(c, fiber.StatusOK, user)
}

// HandleMe returns the caller's profile.
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	user, err := ac.users.GetByID(usercontext.GetUserID(c))
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "user not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load user")
	}
	return c.JSON(newUserView(user))
}

// HandleLogout exists for client symmetry; tokens are stateless and expire on their own.
func (ac *AuthController) HandleLogout(c *fiber.Ctx) error {
	c.ClearCookie("access_token")
	return c.JSON(fiber.Map{"success": true})
}

func (ac *AuthController) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, err := ac.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		log.Errorf("[Auth] issue token for user %d: %v", user.ID, err)
		return jsonError(c, fiber.StatusInternalServerError, "token_failed", "auth token generation failed")
	}
	return c.Status(status).JSON(fiber.Map{"token": token, "user": newUserView(user)})
}

// oauthProfile is the provider-neutral identity returned by an OAuth login.
type oauthProfile struct {
	Provider  string
	ID        string
	Name      string
	Email     string
	AvatarURL string
}

// signInOAuth finds the user by linked identity, then by email, and creates
// one otherwise. The identity is linked in every case.
func (ac *AuthController) signInOAuth(p oauthProfile) (*models.User, error) {
	user, err := ac.users.GetByProviderAccount(p.Provider, p.ID)
	if err == nil {
		return user, nil
	}
	if !isNotFound(err) {
		return nil, fmt.Errorf("lookup provider account: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email != "" {
		user, err = ac.users.GetByEmail(email)
		if err != nil && !isNotFound(err) {
			return nil, fmt.Errorf("lookup email: %w", err)
		}
	}
	if user == nil {
		if email == "" {
			// Provider withheld the address; keep the unique index satisfied.
			email = fmt.Sprintf("%s_%s@nomail.local", p.Provider, p.ID)
		}
		user, err = models.CreateUser(firstNonEmpty(p.Name, "User"), email, "")
		if err != nil {
			return nil, fmt.Errorf("build user: %w", err)
		}
		user.AvatarURL = p.AvatarURL
		if err := ac.users.Create(user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}

	if err := ac.users.LinkProviderAccount(&models.ProviderAccount{
		UserID:         user.ID,
		Provider:       p.Provider,
		ProviderUserID: p.ID,
		Email:          p.Email,
	}); err != nil {
		return nil, fmt.Errorf("link provider account: %w", err)
	}
	return user, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
