package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/services"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	clientID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	msgs, err := h.messages.ListMessages(c.UserContext(), middleware.GetPrincipal(c), clientID)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(msgs)
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	clientID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.messages.SendMessage(c.UserContext(), middleware.GetPrincipal(c), clientID, &req)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
