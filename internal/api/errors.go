package api

import (
	"errors"
	"net/http"

	"github.com/babylonlabs-io/simple-staking/internal/staking"
	"github.com/babylonlabs-io/simple-staking/internal/types"
)

type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

var statusByCode = map[staking.ErrorCode]struct {
	status int
	code   types.ErrorCode
}{
	staking.CodeInvalidAmount:      {http.StatusBadRequest, types.BadRequest},
	staking.CodeArithmeticOverflow: {http.StatusBadRequest, types.BadRequest},
	staking.CodeNoStake:            {http.StatusNotFound, types.NotFound},
	staking.CodeClaimTooSoon:       {http.StatusTooManyRequests, types.TooManyRequests},
	staking.CodeNotOwner:           {http.StatusForbidden, types.Forbidden},
	staking.CodeTransferFailed:     {http.StatusUnprocessableEntity, types.UnprocessableEntity},
}

// toAPIError maps engine failures onto their HTTP representation. Errors the
// engine did not classify are reported as internal.
func toAPIError(err error) *types.Error {
	var apiErr *types.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var stakingErr *staking.Error
	if errors.As(err, &stakingErr) {
		if m, ok := statusByCode[stakingErr.Code]; ok {
			return types.NewErrorWithMsg(m.status, m.code, stakingErr.Message)
		}
	}

	return types.NewInternalServiceError(err)
}

func badRequest(msg string) *types.Error {
	return types.NewErrorWithMsg(http.StatusBadRequest, types.BadRequest, msg)
}

func errorResponse(err *types.Error) ErrorResponse {
	msg := err.Error()
	if err.StatusCode == http.StatusInternalServerError {
		// internal details stay in the logs
		msg = "Internal service error"
	}
	return ErrorResponse{
		ErrorCode: string(err.ErrorCode),
		Message:   msg,
	}
}
