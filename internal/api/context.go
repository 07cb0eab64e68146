package api

import (
	"context"
	"net/http"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// OperatorFromContext returns the masked key of the authenticated caller
func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operatorContextKey).(string)
	return op
}

func contextWithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorContextKey, operator)
}

// operationContext is the context remote operations run on. A dropped HTTP
// connection does not abandon the operation; only an explicit cancel does.
func operationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
