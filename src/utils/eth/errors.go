package eth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
)

var (
	ErrTxReverted       = errors.New("transaction reverted")
	ErrChainDisabled    = errors.New("chain integration is disabled")
	ErrEventNotFound    = errors.New("desired transaction log not found")
	ErrSignerNotSet     = errors.New("signer private key not set")
	ErrInsufficientFund = errors.New("insufficient funds for amount and gas")
)

// Errors that say nothing about the health of the RPC node
func isCallerError(err error) bool {
	if err == nil {
		return true
	}
	msg := strings.ToLower(err.Error())
	return errors.Is(err, ErrTxReverted) ||
		errors.Is(err, ErrInsufficientFund) ||
		strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "replacement transaction underpriced") ||
		strings.Contains(msg, "already known") ||
		errors.Is(err, context.Canceled)
}

// Maps chain errors to API errors
func Classify(err error) *apperr.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := apperr.As(err); ok {
		return appErr
	}

	msg := strings.ToLower(err.Error())
	var netErr net.Error

	switch {
	case errors.Is(err, ErrChainDisabled):
		return apperr.New(http.StatusServiceUnavailable, "CHAIN_DISABLED", "Chain integration is disabled").WithCause(err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperr.New(http.StatusServiceUnavailable, "CHAIN_RPC_UNAVAILABLE", "Chain RPC is unavailable, try again later").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.New(http.StatusGatewayTimeout, "CHAIN_TIMEOUT", "Timed out waiting for the chain").WithCause(err)
	case errors.Is(err, ErrInsufficientFund), strings.Contains(msg, "insufficient funds"):
		return apperr.New(http.StatusBadRequest, "CHAIN_INSUFFICIENT_FUNDS", "Insufficient funds for amount and gas").WithCause(err)
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "replacement transaction underpriced"),
		strings.Contains(msg, "already known"):
		return apperr.New(http.StatusConflict, "CHAIN_NONCE_CONFLICT", "Conflicting transaction, try again").WithCause(err)
	case errors.Is(err, ErrTxReverted), strings.Contains(msg, "execution reverted"):
		return apperr.New(http.StatusBadRequest, "CHAIN_TX_REVERTED", "Transaction reverted: "+err.Error()).WithCause(err)
	case errors.As(err, &netErr),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "503 service unavailable"),
		strings.Contains(msg, "502 bad gateway"),
		strings.Contains(msg, "429 too many requests"):
		return apperr.New(http.StatusServiceUnavailable, "CHAIN_RPC_UNAVAILABLE", "Chain RPC is unavailable, try again later").WithCause(err)
	}
	return apperr.New(http.StatusInternalServerError, "CHAIN_ERROR", "Chain error: "+err.Error()).WithCause(err)
}
