package validation

import "riskgate/internal/models"

// EvaluationRequest checks an incoming evaluation payload and converts it into
// a Transaction.
func EvaluationRequest(req *models.EvaluationRequest) (*models.Transaction, error) {
	v := New()
	v.Positive("transaction_id", req.TransactionID)
	date := v.Timestamp("transaction_date", req.TransactionDate)
	if err := v.Err(); err != nil {
		return nil, err
	}

	return &models.Transaction{
		TransactionID:     req.TransactionID,
		UserID:            req.UserID,
		MerchantID:        req.MerchantID,
		CardNumber:        req.CardNumber,
		TransactionAmount: req.TransactionAmount,
		TransactionDate:   date,
		DeviceID:          req.DeviceID,
	}, nil
}
