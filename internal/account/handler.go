package account

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-pay/kivu_escrow/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Owner string `json:"owner"`
}

type accountResponse struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Code   string `json:"code"`
	Status string `json:"status"`
}

// Create provisions an account and its ledger entry.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := h.service.Create(c.UserContext(), CreateInput{Owner: req.Owner})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(accountResponse{
		ID:     account.ID,
		Owner:  account.Owner,
		Code:   account.Code,
		Status: account.Status,
	})
}

// Balance returns the ledger balance for the account.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": balance.AccountID,
		"balance":    balance.Amount,
		"timestamp":  balance.AsOf,
	})
}

type depositRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Deposit credits the account with externally originated value.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Deposit(c.UserContext(), c.Params("accountId"), req.ClientTxID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"balance":        res.ToBalance,
	})
}
