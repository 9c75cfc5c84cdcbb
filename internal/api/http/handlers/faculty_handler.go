package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/campusdesk/officehours/internal/api/dto"
	"github.com/campusdesk/officehours/internal/service"
	"github.com/campusdesk/officehours/internal/wire"
)

// FacultyHandler exposes the status record endpoints.
type FacultyHandler struct {
	statuses *service.StatusService
}

// NewFacultyHandler constructs handler.
func NewFacultyHandler(statuses *service.StatusService) *FacultyHandler {
	return &FacultyHandler{statuses: statuses}
}

// List handles GET /api/faculty.
func (h *FacultyHandler) List(c *fiber.Ctx) error {
	recs, err := h.statuses.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(wire.NewFacultyList(recs))
}

// Get handles GET /api/faculty/:id.
func (h *FacultyHandler) Get(c *fiber.Ctx) error {
	rec, err := h.statuses.Get(c.UserContext(), facultyID(c))
	if err != nil {
		return err
	}
	return c.JSON(wire.NewFaculty(*rec))
}

// Create handles POST /api/faculty.
func (h *FacultyHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateFacultyRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	rec, err := h.statuses.Create(c.UserContext(), req.ToNewStatusRecord())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(wire.NewFaculty(*rec))
}

// UpdateStatus handles PATCH /api/faculty/:id/status.
func (h *FacultyHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	rec, err := h.statuses.UpdateStatus(c.UserContext(), facultyID(c), req.ToStatusUpdate())
	if err != nil {
		return err
	}
	return c.JSON(wire.NewFaculty(*rec))
}

// Delete handles DELETE /api/faculty/:id.
func (h *FacultyHandler) Delete(c *fiber.Ctx) error {
	if err := h.statuses.Delete(c.UserContext(), facultyID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// QRData handles GET /api/faculty/:id/qr-data.
func (h *FacultyHandler) QRData(c *fiber.Ctx) error {
	loc, err := h.statuses.Locator(c.UserContext(), facultyID(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.QRDataResponse{
		QRData:  loc.URL,
		Faculty: wire.NewFaculty(*loc.Record),
	})
}

// facultyID copies the route param out of the request buffer, which fasthttp
// reuses once the handler returns.
func facultyID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}
