package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/services"
)

type AdminHandler struct {
	admins *services.AdminService
}

func NewAdminHandler(admins *services.AdminService) *AdminHandler {
	return &AdminHandler{admins: admins}
}

func (h *AdminHandler) List(c *fiber.Ctx) error {
	admins, err := h.admins.ListAdmins(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(admins)
}

func (h *AdminHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	admin, err := h.admins.AddAdminUser(c.UserContext(), middleware.GetPrincipal(c), &req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(admin)
}

func (h *AdminHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateAdminRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	admin, err := h.admins.UpdateAdminUser(c.UserContext(), middleware.GetPrincipal(c), paramEmail(c), &req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(admin)
}

func (h *AdminHandler) Toggle(c *fiber.Ctx) error {
	admin, err := h.admins.ToggleAdminStatus(c.UserContext(), middleware.GetPrincipal(c), paramEmail(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(admin)
}

func (h *AdminHandler) Delete(c *fiber.Ctx) error {
	if err := h.admins.DeleteAdminUser(c.UserContext(), middleware.GetPrincipal(c), paramEmail(c)); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Administrator deleted"})
}
