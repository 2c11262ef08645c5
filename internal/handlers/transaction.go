package handlers

import (
	"errors"
	"strconv"

	"riskgate/internal/logger"
	"riskgate/internal/models"
	"riskgate/internal/services/evaluation"
	"riskgate/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type TransactionHandler struct {
	evaluationService evaluation.Service
}

func NewTransactionHandler(evaluationService evaluation.Service) *TransactionHandler {
	return &TransactionHandler{evaluationService: evaluationService}
}

// Evaluate scores one transaction and returns {transaction_id, recommendation}.
func (h *TransactionHandler) Evaluate(c *fiber.Ctx) error {
	var req models.EvaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "invalid request body")
	}

	decision, err := h.evaluationService.EvaluateRequest(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, evaluation.ErrValidation) {
			return utils.BadRequest(c, err.Error())
		}
		log := logger.FromContext(c.UserContext())
		log.Error().
			Err(err).
			Int64("transaction_id", req.TransactionID).
			Msg("evaluation failed")
		return utils.InternalError(c)
	}

	return utils.Success(c, decision.Result())
}

// GetTransaction returns the logged outcome for an evaluated transaction.
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	id, err := transactionID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid transaction id")
	}

	entry, err := h.evaluationService.GetLogEntry(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, evaluation.ErrTransactionNotFound) {
			return utils.NotFound(c, "transaction not found")
		}
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Int64("transaction_id", id).Msg("lookup failed")
		return utils.InternalError(c)
	}

	return utils.Success(c, entry)
}

// RecordChargeback flags an evaluated transaction as charged back.
func (h *TransactionHandler) RecordChargeback(c *fiber.Ctx) error {
	id, err := transactionID(c)
	if err != nil {
		return utils.BadRequest(c, "invalid transaction id")
	}

	if err := h.evaluationService.RecordChargeback(c.UserContext(), id); err != nil {
		if errors.Is(err, evaluation.ErrTransactionNotFound) {
			return utils.NotFound(c, "transaction not found")
		}
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Int64("transaction_id", id).Msg("chargeback failed")
		return utils.InternalError(c)
	}

	return utils.Success(c, fiber.Map{"transaction_id": id, "has_chargeback": true})
}

func transactionID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
