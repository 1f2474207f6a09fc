package controller

import (
	"club-membership-be/internal/dto"
	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/serverutils"
	"club-membership-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IMembershipController interface {
	RegisterRoutes(r fiber.Router)
	Submit(ctx *fiber.Ctx) error
	Eligibility(ctx *fiber.Ctx) error
	MyRequests(ctx *fiber.Ctx) error
	MyMemberships(ctx *fiber.Ctx) error
	Decide(ctx *fiber.Ctx) error
	ListClubRequests(ctx *fiber.Ctx) error
	ListClubMembers(ctx *fiber.Ctx) error
	Lock(ctx *fiber.Ctx) error
	Unlock(ctx *fiber.Ctx) error
	Remove(ctx *fiber.Ctx) error
}

type membershipController struct {
	lifecycle service.ILifecycleService
	admin     service.IMembershipAdminService
	auth      fiber.Handler
}

func NewMembershipController(lifecycle service.ILifecycleService, admin service.IMembershipAdminService, auth fiber.Handler) IMembershipController {
	return &membershipController{lifecycle: lifecycle, admin: admin, auth: auth}
}

func (c *membershipController) RegisterRoutes(r fiber.Router) {
	leader := serverutils.RequireRole(serverutils.RoleLeader)

	m := r.Group("/memberships", c.auth)
	m.Post("/requests", c.Submit)
	m.Get("/eligibility", c.Eligibility)
	m.Get("/requests/mine", c.MyRequests)
	m.Get("/mine", c.MyMemberships)
	m.Post("/requests/:id/decision", leader, c.Decide)
	m.Post("/:id/lock", leader, c.Lock)
	m.Post("/:id/unlock", leader, c.Unlock)
	m.Post("/:id/remove", leader, c.Remove)

	clubs := r.Group("/clubs", c.auth, leader)
	clubs.Get("/:clubId/requests", c.ListClubRequests)
	clubs.Get("/:clubId/members", c.ListClubMembers)
}

func (c *membershipController) Submit(ctx *fiber.Ctx) error {
	var req dto.SubmitMembershipRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	studentId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	res, err := c.lifecycle.Submit(ctx.Context(), service.SubmitCommand{
		StudentId: studentId,
		ClubId:    req.ClubId,
		Reason:    req.Reason,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
	})
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Membership request submitted", dto.NewMembershipRequestResponse(res)))
}

func (c *membershipController) Eligibility(ctx *fiber.Ctx) error {
	clubId, err := uuid.Parse(ctx.Query("club_id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "club_id is required")
	}
	studentId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	verdict, err := c.lifecycle.CheckEligibility(ctx.Context(), studentId, clubId)
	if err != nil {
		return err
	}

	res := &dto.EligibilityResponse{Allowed: verdict.Allowed}
	if !verdict.Allowed {
		res.Reason = string(verdict.Reason)
		res.Message = verdict.Reason.Message()
	}
	return ctx.JSON(serverutils.SuccessResponse("Eligibility checked", res))
}

func (c *membershipController) MyRequests(ctx *fiber.Ctx) error {
	studentId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	res, err := c.lifecycle.ListRequestsByStudent(ctx.Context(), studentId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching requests", dto.NewMembershipRequestResponses(res)))
}

func (c *membershipController) MyMemberships(ctx *fiber.Ctx) error {
	studentId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}
	res, err := c.admin.ListMembershipsByStudent(ctx.Context(), studentId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching memberships", dto.NewMembershipResponses(res)))
}

func (c *membershipController) Decide(ctx *fiber.Ctx) error {
	requestId, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.DecideMembershipRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.lifecycle.Decide(ctx.Context(), service.DecideCommand{
		RequestId: requestId,
		Decision:  entity.Decision(req.Decision),
		Note:      req.Note,
		Amount:    req.Amount,
	})
	if err != nil {
		return err
	}

	body := &dto.DecisionResponse{Request: dto.NewMembershipRequestResponse(res.Request)}
	if res.Payment != nil {
		body.Payment = dto.NewPaymentResponse(res.Payment)
	}
	if res.Membership != nil {
		body.Membership = dto.NewMembershipResponse(res.Membership)
	}
	return ctx.JSON(serverutils.SuccessResponse("Decision recorded", body))
}

func (c *membershipController) ListClubRequests(ctx *fiber.Ctx) error {
	clubId, err := serverutils.ParamUUID(ctx, "clubId")
	if err != nil {
		return err
	}

	var query dto.ListRequestsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query")
	}
	if err := serverutils.ValidateRequest(query); err != nil {
		return err
	}

	res, err := c.lifecycle.ListRequestsByClub(ctx.Context(), clubId, query.Status, query.Page, query.Limit)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching requests", dto.NewMembershipRequestResponses(res)))
}

func (c *membershipController) ListClubMembers(ctx *fiber.Ctx) error {
	clubId, err := serverutils.ParamUUID(ctx, "clubId")
	if err != nil {
		return err
	}
	res, err := c.admin.ListMembershipsByClub(ctx.Context(), clubId, ctx.Query("status"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching members", dto.NewMembershipResponses(res)))
}

func (c *membershipController) Lock(ctx *fiber.Ctx) error {
	return c.changeStatus(ctx, "Membership locked", func(id uuid.UUID, note string) (*entity.Membership, error) {
		return c.admin.Lock(ctx.Context(), id, note)
	})
}

func (c *membershipController) Unlock(ctx *fiber.Ctx) error {
	return c.changeStatus(ctx, "Membership unlocked", func(id uuid.UUID, _ string) (*entity.Membership, error) {
		return c.admin.Unlock(ctx.Context(), id)
	})
}

func (c *membershipController) Remove(ctx *fiber.Ctx) error {
	return c.changeStatus(ctx, "Membership removed", func(id uuid.UUID, note string) (*entity.Membership, error) {
		return c.admin.Remove(ctx.Context(), id, note)
	})
}

func (c *membershipController) changeStatus(ctx *fiber.Ctx, message string, fn func(uuid.UUID, string) (*entity.Membership, error)) error {
	membershipId, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.MembershipNoteRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	res, err := fn(membershipId, req.Note)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse(message, dto.NewMembershipResponse(res)))
}
