package stream

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/kivu-pay/kivu_escrow/internal/ledger"
	"github.com/kivu-pay/kivu_escrow/internal/middleware"
)

// Handler exposes stream HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a stream HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Recipient     string `json:"recipient"`
	RatePerSecond int64  `json:"rate_per_second"`
	Cap           int64  `json:"cap"`
	Funding       int64  `json:"funding"`
	ClientTxID    string `json:"client_tx_id"`
}

type streamResponse struct {
	ID            int64  `json:"id"`
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	RatePerSecond int64  `json:"rate_per_second"`
	Cap           int64  `json:"cap"`
	StartTime     int64  `json:"start_time"`
	Withdrawn     int64  `json:"withdrawn"`
}

// Create opens a funded stream from the caller to the recipient.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	s, err := h.service.Create(c.UserContext(), CreateInput{
		Caller:        middleware.CallerAccount(c),
		Recipient:     req.Recipient,
		RatePerSecond: req.RatePerSecond,
		Cap:           req.Cap,
		Funding:       req.Funding,
		ClientTxID:    req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRate), errors.Is(err, ErrInvalidCap), errors.Is(err, ErrInvalidFunding):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrDuplicateTransaction):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(streamResponse{
		ID:            s.ID,
		Sender:        s.Sender,
		Recipient:     s.Recipient,
		RatePerSecond: s.RatePerSecond,
		Cap:           s.Cap,
		StartTime:     s.StartTime,
		Withdrawn:     s.Withdrawn,
	})
}

// Withdrawable returns the accrued-but-unpaid amount for a stream.
func (h *Handler) Withdrawable(c *fiber.Ctx) error {
	id, err := parseStreamID(c)
	if err != nil {
		return err
	}
	amount, err := h.service.Withdrawable(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"stream_id":    id,
		"withdrawable": amount,
	})
}

// Withdraw pays the withdrawable amount to the stream's recorded recipient.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	id, err := parseStreamID(c)
	if err != nil {
		return err
	}
	res, err := h.service.Withdraw(c.UserContext(), id, middleware.CallerAccount(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNothingToWithdraw):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transaction_id": res.TransactionID,
		"amount":         res.Amount,
		"withdrawn":      res.Withdrawn,
	})
}

func parseStreamID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("streamId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid stream id")
	}
	return id, nil
}
