package handlers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/dto"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ClientHandler struct {
	clients     *services.ClientService
	credentials *services.CredentialService
}

func NewClientHandler(clients *services.ClientService, credentials *services.CredentialService) *ClientHandler {
	return &ClientHandler{clients: clients, credentials: credentials}
}

func (h *ClientHandler) List(c *fiber.Ctx) error {
	clients, err := h.clients.ListClients(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(clients)
}

func (h *ClientHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	client, err := h.clients.GetClient(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(client)
}

// Create accepts either a JSON body or a multipart form whose "payload" field holds
// the JSON record and whose file fields are named after credential slots.
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var req dto.ClientRequest
	files := map[models.CredentialSlot]dto.Upload{}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return badRequest(c, "Invalid multipart form")
		}
		payload := form.Value["payload"]
		if len(payload) == 0 || json.Unmarshal([]byte(payload[0]), &req) != nil {
			return badRequest(c, "Invalid request body")
		}
		for _, slot := range models.CredentialSlots {
			headers := form.File[string(slot)]
			if len(headers) == 0 {
				continue
			}
			upload, err := readUpload(headers[0])
			if err != nil {
				return badRequest(c, "Unreadable file for "+string(slot))
			}
			files[slot] = upload
		}
	} else if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	client, err := h.clients.AddClient(c.UserContext(), middleware.GetPrincipal(c), &req, files)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(client)
}

func (h *ClientHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	var req dto.ClientRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	client, err := h.clients.UpdateClient(c.UserContext(), middleware.GetPrincipal(c), id, &req)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(client)
}

func (h *ClientHandler) Toggle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	client, err := h.clients.ToggleClientStatus(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(client)
}

func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	if err := h.clients.DeleteClient(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Client deleted"})
}

func (h *ClientHandler) Export(c *fiber.Ctx) error {
	data, err := h.clients.ExportClients(c.UserContext(), middleware.GetPrincipal(c))
	if err != nil {
		return respond(c, err)
	}
	return sendDownload(c, &dto.Download{
		FileName:    "clientes.xlsx",
		ContentType: xlsxContentType,
		Data:        data,
	})
}

func (h *ClientHandler) ReplaceCredential(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}
	slot := models.CredentialSlot(c.Params("slot"))

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "File is required")
	}
	upload, err := readUpload(fh)
	if err != nil {
		return badRequest(c, "Unreadable file")
	}

	path, err := h.credentials.ReplaceCredential(c.UserContext(), middleware.GetPrincipal(c), id, slot, upload)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(dto.CredentialResponse{Slot: slot, Path: path})
}

func (h *ClientHandler) DownloadCredential(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	d, err := h.credentials.DownloadCredential(c.UserContext(), middleware.GetPrincipal(c), id, models.CredentialSlot(c.Params("slot")))
	if err != nil {
		return respond(c, err)
	}
	return sendDownload(c, d)
}
