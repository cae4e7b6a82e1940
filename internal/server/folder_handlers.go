package server

import (
	"github.com/gofiber/fiber/v2"

	"atelier/internal/models"
	"atelier/internal/service"
)

// CreateFolder handles POST /api/milestones/:id/folder
// @Summary Designate a deliverable folder
// @Description Vendor command. The folder starts locked and unlocks when the milestone's funds are released. One per milestone.
// @Tags folders
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/folder [post]
func (s *Server) CreateFolder(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.FolderInput
	if err := c.BodyParser(&input); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	folder, err := s.roadmapService.CreateFolder(c.Context(), userID, milestoneID, input)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(folder)
}

// GetFolder handles GET /api/milestones/:id/folder
// @Summary Get a milestone's deliverable folder
// @Description The vendor always sees the folder; the client only once it has unlocked.
// @Tags folders
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/folder [get]
func (s *Server) GetFolder(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	folder, err := s.roadmapService.GetFolder(c.Context(), userID, milestoneID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(folder)
}
