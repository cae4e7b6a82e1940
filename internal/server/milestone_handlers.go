package server

import (
	"github.com/gofiber/fiber/v2"

	"atelier/internal/models"
	"atelier/internal/service"
)

// CreateMilestone handles POST /api/projects/:id/milestones
// @Summary Add a milestone to the roadmap
// @Description Append a milestone to the project roadmap. New milestones enter pending, at the end of the order.
// @Tags milestones
// @Accept json
// @Produce json
// @Param id path int true "Project ID"
// @Security BearerAuth
// @Router /projects/{id}/milestones [post]
func (s *Server) CreateMilestone(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.MilestoneInput
	if err := c.BodyParser(&input); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	milestone, err := s.roadmapService.AddMilestone(c.Context(), userID, projectID, input)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(milestone)
}

// ListMilestones handles GET /api/projects/:id/milestones
// @Summary List the project roadmap
// @Tags milestones
// @Produce json
// @Param id path int true "Project ID"
// @Security BearerAuth
// @Router /projects/{id}/milestones [get]
func (s *Server) ListMilestones(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	projectID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	milestones, err := s.roadmapService.ListMilestones(c.Context(), userID, projectID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestones)
}

// GetMilestone handles GET /api/milestones/:id
// @Summary Get a milestone with history
// @Description Milestone with payment request and review history plus current dispute eligibility.
// @Tags milestones
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id} [get]
func (s *Server) GetMilestone(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.roadmapService.GetMilestoneDetail(c.Context(), userID, milestoneID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(detail)
}

// UpdateMilestone handles PUT /api/milestones/:id
// @Summary Edit a milestone
// @Description Edit title, description, amount, and due date. Amount edits never alter in-flight payment requests.
// @Tags milestones
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id} [put]
func (s *Server) UpdateMilestone(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var input service.MilestoneInput
	if err := c.BodyParser(&input); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	milestone, err := s.roadmapService.UpdateMilestone(c.Context(), userID, milestoneID, input)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}

// DeleteMilestone handles DELETE /api/milestones/:id
// @Summary Delete a pending milestone
// @Description Only pending milestones with no payment or review history can be deleted. Later positions are re-compacted.
// @Tags milestones
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id} [delete]
func (s *Server) DeleteMilestone(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.roadmapService.DeleteMilestone(c.Context(), userID, milestoneID); err != nil {
		return respondServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StartMilestone handles POST /api/milestones/:id/start
// @Summary Start work on a milestone
// @Description Vendor command. Allowed once the preceding milestone on the roadmap is done.
// @Tags escrow
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/start [post]
func (s *Server) StartMilestone(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	milestone, err := s.escrowService.StartMilestone(c.Context(), userID, milestoneID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}

// CompleteMilestone handles POST /api/milestones/:id/complete
// @Summary Complete a zero-escrow milestone
// @Description Vendor command. Requires a completion note. Escrowed milestones complete through payment approval instead.
// @Tags escrow
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/complete [post]
func (s *Server) CompleteMilestone(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	milestone, err := s.escrowService.CompleteMilestone(c.Context(), userID, milestoneID, body.Note)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}

// RequestPayment handles POST /api/milestones/:id/request-payment
// @Summary Request release of escrowed funds
// @Description Vendor command. Snapshots the milestone amount, starts the client's review window, and moves the milestone to ready_for_review.
// @Tags escrow
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/request-payment [post]
func (s *Server) RequestPayment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		VendorNote string `json:"vendor_note"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return respondServiceError(c, models.NewValidationError("Invalid request body"))
		}
	}

	milestone, request, err := s.escrowService.RequestPayment(c.Context(), userID, milestoneID, body.VendorNote)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"milestone":       milestone,
		"payment_request": request,
	})
}

// OpenDispute handles POST /api/milestones/:id/open-dispute
// @Summary Escalate a milestone to mediation
// @Description Vendor command. Requires changes_requested status and the rejection threshold to be reached.
// @Tags escrow
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/open-dispute [post]
func (s *Server) OpenDispute(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	milestone, err := s.escrowService.OpenDispute(c.Context(), userID, milestoneID, body.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}

// ResolveDispute handles POST /api/milestones/:id/resolve-dispute
// @Summary Apply an external mediation decision
// @Description Admin command. Outcome "rework" sends the milestone back to the vendor; "release" completes it in the vendor's favor and releases funds.
// @Tags escrow
// @Accept json
// @Produce json
// @Param id path int true "Milestone ID"
// @Security BearerAuth
// @Router /milestones/{id}/resolve-dispute [post]
func (s *Server) ResolveDispute(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	milestoneID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Outcome string `json:"outcome"`
		Note    string `json:"note"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	milestone, err := s.escrowService.ResolveDispute(
		c.Context(), userID, milestoneID, service.DisputeOutcome(body.Outcome), body.Note)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}
