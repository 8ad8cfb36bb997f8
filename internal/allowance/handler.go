package allowance

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-pay/kivu_escrow/internal/ledger"
	"github.com/kivu-pay/kivu_escrow/internal/middleware"
)

// Handler exposes allowance HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an allowance HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type setRequest struct {
	Amount int64 `json:"amount"`
	Expiry int64 `json:"expiry"`
}

// Set overwrites the caller's grant for the spender in the path.
func (h *Handler) Set(c *fiber.Ctx) error {
	var req setRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	input := SetAllowanceInput{
		Caller:  middleware.CallerAccount(c),
		Spender: c.Params("spender"),
		Amount:  req.Amount,
		Expiry:  req.Expiry,
	}
	if err := h.service.SetAllowance(c.UserContext(), input); err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}

// Get returns remaining allowance and expiry for an owner/spender pair; an
// absent pair reads as zeros.
func (h *Handler) Get(c *fiber.Ctx) error {
	owner := c.Params("owner")
	spender := c.Params("spender")

	remaining, err := h.service.Allowance(c.UserContext(), owner, spender)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	expiry, err := h.service.Expiry(c.UserContext(), owner, spender)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"owner":     owner,
		"spender":   spender,
		"remaining": remaining,
		"expiry":    expiry,
	})
}

type fundRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Fund moves value from the caller's account into their delegation pool.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.FundPool(c.UserContext(), FundPoolInput{
		Caller:     middleware.CallerAccount(c),
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"pool_balance":   res.ToBalance,
	})
}

type spendRequest struct {
	To         string `json:"to"`
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Spend performs a delegated spend against the owner's pool, with the caller
// as spender.
func (h *Handler) Spend(c *fiber.Ctx) error {
	var req spendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Spend(c.UserContext(), SpendInput{
		Caller:     middleware.CallerAccount(c),
		Owner:      c.Params("owner"),
		To:         req.To,
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoGrant):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrGrantExpired), errors.Is(err, ErrGrantExceeded), errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"remaining":      res.Remaining,
	})
}
