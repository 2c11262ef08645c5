// Package client implements the evaluation call contract used by the backtest
// orchestrator and riskctl.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"riskgate/internal/models"
	"riskgate/internal/services/evaluation"

	"github.com/gofiber/fiber/v2"
)

// ErrStatus marks a non-success response from the evaluation API.
var ErrStatus = errors.New("unexpected response status")

// HTTPEvaluator posts transactions to a running evaluation API.
type HTTPEvaluator struct {
	url     string
	timeout time.Duration
	token   string
}

// NewHTTPEvaluator targets url. An empty token sends unauthenticated requests.
func NewHTTPEvaluator(url string, timeout time.Duration, token string) *HTTPEvaluator {
	return &HTTPEvaluator{url: url, timeout: timeout, token: token}
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	agent := fiber.Post(e.url)
	if e.timeout > 0 {
		agent.Timeout(e.timeout)
	}
	if e.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+e.token)
	}
	agent.JSON(req)
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("prepare request: %w", err)
	}

	var res models.EvaluationResult
	code, body, errs := agent.Struct(&res)
	if code != 0 && (code < fiber.StatusOK || code >= fiber.StatusMultipleChoices) {
		return nil, fmt.Errorf("%w: %d: %s", ErrStatus, code, strings.TrimSpace(string(body)))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return &res, nil
}

// LocalEvaluator calls an in-process engine, skipping the network hop.
type LocalEvaluator struct {
	svc evaluation.Service
}

func NewLocalEvaluator(svc evaluation.Service) *LocalEvaluator {
	return &LocalEvaluator{svc: svc}
}

func (e *LocalEvaluator) Evaluate(ctx context.Context, req *models.EvaluationRequest) (*models.EvaluationResult, error) {
	d, err := e.svc.EvaluateRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	res := d.Result()
	return &res, nil
}
