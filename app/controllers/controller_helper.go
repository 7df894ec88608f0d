package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var validate = validator.New()

// jsonError writes the standard {"error","message"} body.
func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// requestError is a client mistake reported as 400.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.code + ": " + e.message }

// parseBody decodes the JSON body into dst and runs its validate tags.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return &requestError{code: "invalid_body", message: "request body could not be parsed"}
	}
	if err := validate.Struct(dst); err != nil {
		return &requestError{code: "validation_failed", message: validationMessage(err)}
	}
	return nil
}

// badRequest answers 400 for a requestError, or for any other validation error.
func badRequest(c *fiber.Ctx, err error) error {
	var re *requestError
	if errors.As(err, &re) {
		return jsonError(c, fiber.StatusBadRequest, re.code, re.message)
	}
	return jsonError(c, fiber.StatusBadRequest, "validation_failed", validationMessage(err))
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, lowerFirst(fe.Field())+" failed "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// paramID reads a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func invalidID(c *fiber.Ctx, name string) error {
	return jsonError(c, fiber.StatusBadRequest, "invalid_id", name+" must be a positive integer")
}

// pagination returns page, pageSize and the row offset.
func pagination(c *fiber.Ctx) (int, int, int) {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	size := c.QueryInt("pageSize", c.QueryInt("limit", defaultPageSize))
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size, (page - 1) * size
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// wantsHTML reports whether a browser navigated here directly.
func wantsHTML(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMEApplicationJSON, fiber.MIMETextHTML) == fiber.MIMETextHTML
}
