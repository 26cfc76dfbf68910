package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/service"
	"github.com/noah-isme/scolarite-api/internal/utils"
)

// GradeHandler exposes the grades service.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches grade routes to the router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("/etudiants", h.list)
	router.Post("/etudiant", h.create)
	router.Get("/etudiant/:id", h.get)
	router.Put("/etudiant/:id", h.update)
	router.Delete("/etudiant/:id", h.delete)
	router.Get("/etudiant/:id/note-finale", h.finalGrade)
	router.Get("/validant", h.passing)
	router.Get("/majorants", h.top)
	router.Get("/tries", h.sorted)
}

func (h *GradeHandler) list(c *fiber.Ctx) error {
	students, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list students")
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *GradeHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	student, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to fetch student")
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *GradeHandler) create(c *fiber.Ctx) error {
	var payload dto.GradeStudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Create(requestContext(c), activityActorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create student")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *GradeHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeStudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Update(requestContext(c), activityActorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update student")
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *GradeHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), activityActorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err, "failed to delete student")
	}
	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *GradeHandler) passing(c *fiber.Ctx) error {
	students, err := h.service.Passing(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list passing students")
	}
	return utils.SendSuccess(c, "passing students retrieved", students)
}

func (h *GradeHandler) top(c *fiber.Ctx) error {
	students, err := h.service.TopStudents(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list top students")
	}
	return utils.SendSuccess(c, "top students retrieved", students)
}

func (h *GradeHandler) sorted(c *fiber.Ctx) error {
	students, err := h.service.Sorted(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to sort students")
	}
	return utils.SendSuccess(c, "students sorted by average", students)
}

func (h *GradeHandler) finalGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.FinalGrade(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to compute final grade")
	}
	return utils.SendSuccess(c, "final grade computed", result)
}
