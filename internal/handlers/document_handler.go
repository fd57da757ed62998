package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/grupokali/portal/internal/middleware"
	"github.com/grupokali/portal/internal/models"
	"github.com/grupokali/portal/internal/services"
)

type DocumentHandler struct {
	documents *services.DocumentService
}

func NewDocumentHandler(documents *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documents: documents}
}

func (h *DocumentHandler) List(c *fiber.Ctx) error {
	clientID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	folder := models.DocumentFolder(c.Query("folder"))
	docs, err := h.documents.ListDocuments(c.UserContext(), middleware.GetPrincipal(c), clientID, folder)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(docs)
}

func (h *DocumentHandler) Upload(c *fiber.Ctx) error {
	clientID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid client id")
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "File is required")
	}
	upload, err := readUpload(fh)
	if err != nil {
		return badRequest(c, "Unreadable file")
	}

	folder := models.DocumentFolder(c.FormValue("folder"))
	doc, err := h.documents.UploadDocument(c.UserContext(), middleware.GetPrincipal(c), clientID, folder, upload)
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

func (h *DocumentHandler) Download(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid document id")
	}

	d, err := h.documents.DownloadDocument(c.UserContext(), middleware.GetPrincipal(c), id)
	if err != nil {
		return respond(c, err)
	}
	return sendDownload(c, d)
}

func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Invalid document id")
	}

	if err := h.documents.DeleteDocument(c.UserContext(), middleware.GetPrincipal(c), id); err != nil {
		return respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Document deleted"})
}
