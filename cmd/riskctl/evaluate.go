package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"riskgate/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score one transaction through the evaluation API",
		Example: `  riskctl evaluate --transaction-id 2342357 --merchant-id 56107 --user-id 97051 \
    --card-number '434505******9116' --date 2019-11-30T23:16:32.812632 \
    --amount 5000 --device-id 285475
  riskctl evaluate --file transaction.json`,
		RunE: runEvaluate,
	}

	cmd.Flags().String("file", "", "JSON file holding the request body")
	cmd.Flags().Int64("transaction-id", 0, "transaction id")
	cmd.Flags().Int64("merchant-id", 0, "merchant id")
	cmd.Flags().Int64("user-id", 0, "user id")
	cmd.Flags().String("card-number", "", "masked card number")
	cmd.Flags().String("date", "", "transaction timestamp (ISO-8601)")
	cmd.Flags().String("amount", "0", "transaction amount")
	cmd.Flags().Int64("device-id", 0, "device id (omit when unknown)")
	cmd.Flags().String("evaluator-url", "", "evaluation endpoint (default: EVALUATOR_URL)")

	return cmd
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd, map[string]string{"evaluator.url": "evaluator-url"}); err != nil {
		return err
	}
	req, err := evaluationRequestFromFlags(cmd)
	if err != nil {
		return err
	}

	eval, err := newHTTPEvaluator(loadConfig(), 5*time.Minute)
	if err != nil {
		return err
	}
	res, err := eval.Evaluate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("error communicating with the API: %w", err)
	}

	out, err := json.MarshalIndent(res, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func evaluationRequestFromFlags(cmd *cobra.Command) (*models.EvaluationRequest, error) {
	var req models.EvaluationRequest
	flags := cmd.Flags()

	if file, _ := flags.GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		return &req, nil
	}

	req.TransactionID, _ = flags.GetInt64("transaction-id")
	req.MerchantID, _ = flags.GetInt64("merchant-id")
	req.UserID, _ = flags.GetInt64("user-id")
	req.CardNumber, _ = flags.GetString("card-number")
	req.TransactionDate, _ = flags.GetString("date")

	amount, _ := flags.GetString("amount")
	var err error
	if req.TransactionAmount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("invalid --amount: %w", err)
	}
	if flags.Changed("device-id") {
		id, _ := flags.GetInt64("device-id")
		req.DeviceID = &id
	}
	return &req, nil
}
