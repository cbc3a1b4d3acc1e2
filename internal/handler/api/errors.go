package api

import (
	"context"
	"errors"

	"StockLens/internal/gateway"
	xhttp "StockLens/pkg/http"
)

// toAppError maps gateway failures onto HTTP statuses. Kind and reason are
// exposed as params so clients can branch without parsing messages.
func toAppError(err error) *xhttp.AppError {
	var ge *gateway.Error
	if !errors.As(err, &ge) {
		return xhttp.InternalError("unexpected error").WithError(err)
	}

	var ae *xhttp.AppError
	switch ge.Kind {
	case gateway.KindInvalidInput:
		ae = xhttp.BadRequestError(errMessage(ge, "invalid request"))
	case gateway.KindConfiguration:
		ae = xhttp.ServiceUnavailableError("market data provider is not configured")
	case gateway.KindTimeout:
		ae = xhttp.GatewayTimeoutError("market data provider timed out")
	case gateway.KindProvider:
		switch ge.Reason {
		case gateway.ReasonUnknownSymbol:
			ae = xhttp.NotFoundErrorf("unknown symbol %s", ge.Symbol)
		case gateway.ReasonRateLimited:
			ae = xhttp.TooManyRequestsError("market data provider rate limit reached")
			ae.WithParam("retry_after_seconds", 60)
		default:
			ae = xhttp.BadGatewayError("market data provider error")
		}
	case gateway.KindNetwork:
		if errors.Is(err, context.Canceled) {
			ae = xhttp.NewAppError("ERR_CANCELED", "", "request canceled", statusClientClosed)
		} else {
			ae = xhttp.BadGatewayError("market data provider unreachable")
		}
	default:
		ae = xhttp.InternalError("unexpected error")
	}

	ae.WithParam("kind", string(ge.Kind))
	if ge.Reason != gateway.ReasonNone {
		ae.WithParam("reason", string(ge.Reason))
	}
	if ge.Retryable {
		ae.WithParam("retryable", true)
	}
	return ae.WithError(err)
}

func errMessage(ge *gateway.Error, fallback string) string {
	if ge.Err != nil {
		return ge.Err.Error()
	}
	if ge.Message != "" {
		return ge.Message
	}
	return fallback
}

// nginx convention for a client that went away before the response.
const statusClientClosed = 499
