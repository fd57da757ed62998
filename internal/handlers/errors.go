package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/services"
)

type errorMapping struct {
	target error
	status int
	// detail exposes the wrapped message instead of the sentinel text.
	detail bool
}

var errorMappings = []errorMapping{
	{services.ErrValidation, fiber.StatusBadRequest, true},
	{services.ErrEmailTaken, fiber.StatusConflict, false},
	{services.ErrRFCTaken, fiber.StatusConflict, false},
	{services.ErrConflict, fiber.StatusConflict, false},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, false},
	{services.ErrSessionInvalid, fiber.StatusUnauthorized, false},
	{services.ErrAccountDisabled, fiber.StatusForbidden, false},
	{services.ErrProfileMissing, fiber.StatusForbidden, false},
	{services.ErrForbidden, fiber.StatusForbidden, false},
	{services.ErrPermission, fiber.StatusForbidden, false},
	{services.ErrSuperAdminProtected, fiber.StatusForbidden, false},
	{services.ErrSelfTarget, fiber.StatusForbidden, false},
	{services.ErrNotFound, fiber.StatusNotFound, false},
	{services.ErrDatabase, fiber.StatusInternalServerError, false},
	{services.ErrStorage, fiber.StatusInternalServerError, false},
}

// respond writes the error response for a service failure. Server-side failures are
// logged with the request id; only the sentinel text reaches the caller.
func respond(c *fiber.Ctx, err error) error {
	status, message := fiber.StatusInternalServerError, "Internal server error"
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, message = m.status, m.target.Error()
			if m.detail {
				message = err.Error()
			}
			break
		}
	}

	if status >= fiber.StatusInternalServerError {
		p := middleware.GetPrincipal(c)
		slog.Error("request failed",
			"error", err,
			"request_id", middleware.RequestID(c),
			"actor_email", p.Email,
			"path", c.Path(),
		)
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

// paramEmail decodes an email path segment; clients may percent-encode the @.
func paramEmail(c *fiber.Ctx) string {
	raw := c.Params("email")
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}
	return raw
}

func readUpload(fh *multipart.FileHeader) (dto.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return dto.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return dto.Upload{}, err
	}
	return dto.Upload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func sendDownload(c *fiber.Ctx, d *dto.Download) error {
	contentType := d.ContentType
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Attachment(d.FileName)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(d.Data)
}
