package server

import (
	"github.com/gofiber/fiber/v2"

	"atelier/internal/models"
)

// ApprovePayment handles POST /api/payment-requests/:id/approve
// @Summary Approve a payment request
// @Description Client command. Releases escrowed funds: the request settles, the milestone completes as paid, and the deliverable folder unlocks.
// @Tags payments
// @Produce json
// @Param id path int true "Payment request ID"
// @Security BearerAuth
// @Router /payment-requests/{id}/approve [post]
func (s *Server) ApprovePayment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	milestone, err := s.escrowService.ApprovePayment(c.Context(), userID, requestID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}

// RejectPayment handles POST /api/payment-requests/:id/reject
// @Summary Reject a payment request
// @Description Client command. Requires a non-empty reason. The request terminates, a review is appended, and the milestone returns to the vendor.
// @Tags payments
// @Accept json
// @Produce json
// @Param id path int true "Payment request ID"
// @Security BearerAuth
// @Router /payment-requests/{id}/reject [post]
func (s *Server) RejectPayment(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	requestID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondServiceError(c, models.NewValidationError("Invalid request body"))
	}

	milestone, err := s.escrowService.RejectPayment(c.Context(), userID, requestID, body.Reason)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(milestone)
}
