// Package steps holds the registry of provisioning steps and the concrete
// Google and Microsoft step definitions for federation setup.
package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/provider"
)

// ExecuteFunc is the shape of wrapped step execution logic.
type ExecuteFunc func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error)

// ValidateRequiredOutputs checks the execution preconditions for a step:
// domain and tenant must be configured, and every required output key must
// already be accumulated. Returns nil when all preconditions hold.
func ValidateRequiredOutputs(sc *core.StepContext, stepID core.StepID, required []string) *core.StepError {
	var missing []string
	if sc.Domain == "" {
		missing = append(missing, "domain")
	}
	if sc.TenantID == "" {
		missing = append(missing, "tenantId")
	}
	if len(missing) > 0 {
		return &core.StepError{
			Code:    core.CodeMissingConfig,
			Message: fmt.Sprintf("missing required configuration: %s", strings.Join(missing, ", ")),
		}
	}

	var absent []string
	for _, key := range required {
		if _, ok := sc.Outputs[key]; !ok {
			absent = append(absent, key)
		}
	}
	if len(absent) > 0 {
		return &core.StepError{
			Code: core.CodeMissingDependency,
			Message: fmt.Sprintf("step %s is missing dependency outputs: %s",
				stepID, strings.Join(absent, ", ")),
		}
	}
	return nil
}

// WrapExecute wraps step execution logic with precondition validation and
// error normalization. The returned function never yields a raw error for
// expected conditions; they travel as a StepError in the result.
func WrapExecute(stepID core.StepID, requiredOutputs []string, fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, sc *core.StepContext) (*core.ExecutionResult, error) {
		if stepErr := ValidateRequiredOutputs(sc, stepID, requiredOutputs); stepErr != nil {
			return &core.ExecutionResult{Success: false, Error: stepErr}, nil
		}

		result, err := fn(ctx, sc)
		if err != nil {
			return convertExecuteError(err), nil
		}
		if result == nil {
			result = &core.ExecutionResult{Success: true}
		}
		return result, nil
	}
}

// convertExecuteError normalizes a raw execution error into a structured
// failure result.
func convertExecuteError(err error) *core.ExecutionResult {
	if provider.IsAuthenticationError(err) {
		p := provider.AuthErrorProvider(err)
		return &core.ExecutionResult{
			Success: false,
			Error: &core.StepError{
				Code:     core.CodeAuthExpired,
				Message:  "Authentication expired. Please sign in again.",
				Provider: p,
			},
			Outputs: map[string]interface{}{"errorProvider": string(p)},
		}
	}

	if apiErr, ok := provider.AsAPIError(err); ok {
		code := apiErr.Code
		if code == "" {
			code = core.CodeUnknownError
		}
		return &core.ExecutionResult{
			Success: false,
			Error: &core.StepError{
				Code:     code,
				Message:  apiErr.Message,
				Provider: apiErr.Provider,
			},
		}
	}

	return &core.ExecutionResult{
		Success: false,
		Error: &core.StepError{
			Code:    core.CodeUnknownError,
			Message: err.Error(),
		},
	}
}
