package controller

import (
	"errors"

	"club-membership-be/internal/dto"
	"club-membership-be/internal/entity"
	"club-membership-be/internal/pkg/serverutils"
	"club-membership-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPaymentController interface {
	RegisterRoutes(r fiber.Router)
	Checkout(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	GetPayment(ctx *fiber.Ctx) error
	Webhook(ctx *fiber.Ctx) error
}

type paymentController struct {
	lifecycle  service.ILifecycleService
	settlement service.ISettlementService
	auth       fiber.Handler
}

func NewPaymentController(lifecycle service.ILifecycleService, settlement service.ISettlementService, auth fiber.Handler) IPaymentController {
	return &paymentController{lifecycle: lifecycle, settlement: settlement, auth: auth}
}

func (c *paymentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/payments")
	// registered before /:id so the gateway never hits the auth chain
	h.Post("/midtrans/notification", c.Webhook)

	h.Get("/:id", c.auth, c.GetPayment)
	h.Post("/:id/checkout", c.auth, c.Checkout)
	h.Post("/:id/cancel", c.auth, c.Cancel)
}

// owned loads the payment and checks it belongs to the caller. Leaders may
// read any payment but only the owning student may act on it.
func (c *paymentController) owned(ctx *fiber.Ctx, allowLeader bool) (*entity.Payment, error) {
	paymentId, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return nil, err
	}
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return nil, err
	}

	payment, err := c.lifecycle.GetPayment(ctx.Context(), paymentId)
	if err != nil {
		return nil, err
	}
	if allowLeader && ctx.Locals(serverutils.LocalRole) == serverutils.RoleLeader {
		return payment, nil
	}

	request, err := c.lifecycle.GetRequest(ctx.Context(), payment.RequestId)
	if err != nil {
		return nil, err
	}
	if request.StudentId != userId {
		// same answer as a missing payment
		return nil, entity.ErrNotFound
	}
	return payment, nil
}

func (c *paymentController) GetPayment(ctx *fiber.Ctx) error {
	payment, err := c.owned(ctx, true)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching payment", dto.NewPaymentResponse(payment)))
}

func (c *paymentController) Checkout(ctx *fiber.Ctx) error {
	payment, err := c.owned(ctx, false)
	if err != nil {
		return err
	}

	res, err := c.lifecycle.InitiatePayment(ctx.Context(), payment.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout created", &dto.CheckoutResponse{
		Payment:     dto.NewPaymentResponse(res.Payment),
		CheckoutUrl: res.CheckoutUrl,
		SnapToken:   res.Token,
	}))
}

func (c *paymentController) Cancel(ctx *fiber.Ctx) error {
	payment, err := c.owned(ctx, false)
	if err != nil {
		return err
	}

	res, err := c.lifecycle.CancelPayment(ctx.Context(), payment.Id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment cancelled", dto.NewPaymentResponse(res)))
}

func (c *paymentController) Webhook(ctx *fiber.Ctx) error {
	var req dto.MidtransWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "Invalid notification body"))
	}

	if err := c.settlement.HandleNotification(ctx.Context(), &req); err != nil {
		if errors.Is(err, service.ErrInvalidSignature) || errors.Is(err, entity.ErrValidation) {
			return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, err.Error()))
		}
		// a non-2xx makes Midtrans redeliver
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(500, err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("OK", nil))
}
