package openai

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/greenvolt/docverify/internal/core/domain"
	"github.com/greenvolt/docverify/internal/infrastructure/resilience"
)

func classifyUpstreamError(err error) resilience.Classification {
	if err == nil {
		return resilience.Classification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}

	var statusErr *UpstreamError
	if errors.As(err, &statusErr) {
		return resilience.Classification{
			Retryable:     isRetryableHTTPStatus(statusErr.StatusCode),
			RecordFailure: true,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.Classification{Retryable: true, RecordFailure: true}
	}

	return resilience.Classification{Retryable: false, RecordFailure: true}
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// wrapUpstream maps transport-level failures onto ErrUpstream. Caller
// cancellation passes through untouched.
func wrapUpstream(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if domain.IsKind(err, domain.ErrUpstream) {
		return err
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}
