package auth

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Lernia/authgate/internal/domain/cookie"
	"github.com/Lernia/authgate/internal/domain/user"
	"github.com/Lernia/authgate/internal/utils"
)

type Handler struct {
	service    *Service
	cookieName string
}

func NewHandler(service *Service, cookieName string) *Handler {
	return &Handler{service: service, cookieName: cookieName}
}

// clientFromCtx collects the request facts credentials are bound to
func clientFromCtx(c *fiber.Ctx) cookie.Client {
	return cookie.Client{
		UserAgent:      c.Get(fiber.HeaderUserAgent),
		AcceptLanguage: c.Get(fiber.HeaderAcceptLanguage),
		IP:             c.IP(),
		Secure:         c.Secure(),
	}
}

func setAuthCookie(c *fiber.Ctx, issued *cookie.IssuedCookie) {
	c.Cookie(&fiber.Cookie{
		Name:     issued.Name,
		Value:    issued.Value,
		Expires:  issued.ExpiresAt,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearAuthCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req user.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest)
	}

	u, issued, err := h.service.Login(c.UserContext(), req.Email, req.Password, clientFromCtx(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrTooManyAttempts):
			return utils.ErrorResponse(c, utils.NewAPIError(
				"TOO_MANY_ATTEMPTS",
				"Too many failed attempts, please try again later",
				fiber.StatusTooManyRequests,
			))
		case errors.Is(err, ErrInvalidCredentials):
			return utils.ErrorResponse(c, utils.NewAPIError(
				"INVALID_CREDENTIALS",
				"Invalid email or password",
				fiber.StatusUnauthorized,
			))
		case errors.Is(err, cookie.ErrInsecureTransport):
			return utils.ErrorResponse(c, utils.NewAPIError(
				"INSECURE_TRANSPORT",
				"Login requires a secure connection",
				fiber.StatusForbidden,
			))
		default:
			return utils.ErrorResponse(c, utils.ErrInternalServer)
		}
	}

	setAuthCookie(c, issued)

	return utils.SuccessResponse(c, fiber.Map{
		"user": u,
		"csrf": issued.CSRF,
	}, "Login successful")
}

func (h *Handler) Register(c *fiber.Ctx) error {
	var req user.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, utils.ErrBadRequest)
	}

	if req.Email == "" || req.Password == "" {
		return utils.ErrorResponse(c, utils.NewAPIError(
			"MISSING_FIELDS",
			"Email and password are required",
			fiber.StatusBadRequest,
		))
	}

	u, err := h.service.Register(req)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return utils.ErrorResponse(c, utils.NewAPIError(
				"EMAIL_TAKEN",
				"Email already registered",
				fiber.StatusConflict,
			))
		}
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	return utils.SuccessResponse(c, fiber.Map{"user": u}, "User registered successfully", fiber.StatusCreated)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	raw := c.Cookies(h.cookieName)
	if err := h.service.Logout(c.UserContext(), raw); err != nil {
		return utils.ErrorResponse(c, utils.ErrInternalServer)
	}

	clearAuthCookie(c, h.cookieName)
	return utils.SuccessResponse(c, nil, "Logged out")
}

func (h *Handler) Me(c *fiber.Ctx) error {
	identity := GetIdentity(c)
	if identity == nil {
		return utils.ErrorResponse(c, utils.ErrUnauthorized)
	}

	return utils.SuccessResponse(c, fiber.Map{
		"user_id": identity.UserID,
		"csrf":    identity.CSRF,
	}, "")
}
