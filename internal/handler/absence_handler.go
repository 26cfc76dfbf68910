package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/service"
	"github.com/noah-isme/scolarite-api/internal/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AbsenceHandler exposes the absence service.
type AbsenceHandler struct {
	service service.AbsenceService
	logger  zerolog.Logger
}

// NewAbsenceHandler constructs the handler.
func NewAbsenceHandler(service service.AbsenceService, logger zerolog.Logger) *AbsenceHandler {
	return &AbsenceHandler{
		service: service,
		logger:  logger.With().Str("component", "absence_handler").Logger(),
	}
}

// Register attaches absence routes to the router group.
func (h *AbsenceHandler) Register(router fiber.Router) {
	router.Get("/etudiants", h.list)
	router.Post("/etudiant", h.create)
	router.Get("/etudiant/:id", h.get)
	router.Put("/etudiant/:id", h.update)
	router.Delete("/etudiant/:id", h.delete)
	router.Get("/etudiant/:id/taux", h.rate)
	router.Get("/liste-noire", h.blacklist)
	router.Get("/liste-noire/export", h.exportBlacklist)
	router.Post("/import", h.importSpreadsheet)
}

func (h *AbsenceHandler) list(c *fiber.Ctx) error {
	records, err := h.service.List(requestContext(c), c.Query("niveau"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list absences")
	}
	return utils.SendSuccess(c, "absences retrieved", records)
}

func (h *AbsenceHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch absence record")
	}
	return utils.SendSuccess(c, "absence record retrieved", record)
}

func (h *AbsenceHandler) create(c *fiber.Ctx) error {
	var payload dto.AbsenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.service.Create(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create absence record")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "absence record created", record)
}

func (h *AbsenceHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AbsenceRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	record, err := h.service.Update(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update absence record")
	}
	return utils.SendSuccess(c, "absence record updated", record)
}

func (h *AbsenceHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), activityActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete absence record")
	}
	return utils.SendSuccess(c, "absence record deleted", fiber.Map{"id": id})
}

func (h *AbsenceHandler) rate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rate, err := h.service.Rate(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute absence rate")
	}
	return utils.SendSuccess(c, "absence rate computed", rate)
}

func (h *AbsenceHandler) blacklist(c *fiber.Ctx) error {
	threshold, err := parseQueryFloat(c, "seuil")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid seuil")
	}

	blacklist, err := h.service.Blacklist(requestContext(c), threshold)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute blacklist")
	}
	return utils.SendSuccess(c, "blacklist computed", blacklist)
}

func (h *AbsenceHandler) exportBlacklist(c *fiber.Ctx) error {
	threshold, err := parseQueryFloat(c, "seuil")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid seuil")
	}

	workbook, err := h.service.ExportBlacklist(requestContext(c), threshold)
	if err != nil {
		return respondError(c, h.logger, err, "failed to export blacklist")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "liste-noire.xlsx"))
	return c.Status(fiber.StatusOK).Send(workbook)
}

func (h *AbsenceHandler) importSpreadsheet(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.Import(requestContext(c), activityActorFromContext(c), file)
	if err != nil {
		return respondError(c, h.logger, err, "failed to import absences")
	}
	return utils.SendSuccess(c, "absences imported", result)
}
