package escrow

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-pay/kivu_escrow/internal/ledger"
	"github.com/kivu-pay/kivu_escrow/internal/middleware"
)

// Handler exposes commit-reveal HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an escrow HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type commitRequest struct {
	Key        string `json:"key"`
	Deposit    int64  `json:"deposit"`
	ClientTxID string `json:"client_tx_id"`
}

// Commit locks a commitment key with the caller's deposit.
func (h *Handler) Commit(c *fiber.Ctx) error {
	var req commitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	key, err := ParseKey(req.Key)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	err = h.service.Commit(c.UserContext(), CommitInput{
		Caller:     middleware.CallerAccount(c),
		Key:        key,
		Deposit:    req.Deposit,
		ClientTxID: req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDeposit):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCommitmentExists), errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"key": key.Hex()})
}

type revealRequest struct {
	Secret string `json:"secret"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Reveal presents the preimage of a commitment to release the payout.
func (h *Handler) Reveal(c *fiber.Ctx) error {
	var req revealRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	secret, err := ParseSecret(req.Secret)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Reveal(c.UserContext(), RevealInput{
		Caller: middleware.CallerAccount(c),
		Secret: secret,
		To:     req.To,
		Amount: req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrCommitmentNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrAlreadyRevealed):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"key":            res.Key.Hex(),
		"transaction_id": res.TransactionID,
		"paid":           res.Paid,
	})
}
