package server

import (
	"github.com/gofiber/fiber/v2"

	"atelier/internal/models"
	"atelier/internal/service"
)

// CreateProject handles POST /api/projects
// @Summary Create a project
// @Description Create an engagement between one client and one vendor. The caller must be one of the two parties.
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Router /projects [post]
func (s *Server) CreateProject(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var input service.CreateProjectInput
	if err := c.BodyParser(&input); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	project, err := s.roadmapService.CreateProject(c.Context(), userID, input)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}

// ListProjects handles GET /api/projects
// @Summary List my projects
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Router /projects [get]
func (s *Server) ListProjects(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	projects, err := s.roadmapService.ListProjects(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(projects)
}

// GetProject handles GET /api/projects/:id
// @Summary Get a project
// @Tags projects
// @Produce json
// @Param id path int true "Project ID"
// @Security BearerAuth
// @Router /projects/{id} [get]
func (s *Server) GetProject(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	project, err := s.roadmapService.GetProject(c.Context(), userID, projectID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(project)
}
