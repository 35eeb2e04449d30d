package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/xela07ax/libra-console/internal/domain"
	"go.uber.org/zap"
)

// TokenValidator - всё, что middleware нужно от проверяющего
type TokenValidator interface {
	Authorize(tokenStr, scope string) (*domain.OperatorClaims, error)
}

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const operatorKey ctxKey = "operator_id"

// NewMiddleware пускает только операторов с правом согласовывать заявки
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.Authorize(authHeader, domain.ScopeDecide)
			switch {
			case errors.Is(err, ErrScopeMissing):
				logger.Warn("operator lacks scope",
					zap.String("operator_id", claims.OperatorID),
					zap.String("scope", domain.ScopeDecide))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			case err != nil:
				logger.Warn("auth failure", zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), claims.OperatorID)))
		})
	}
}

func WithOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorKey, operatorID)
}

// OperatorFromContext возвращает ID оператора или пустую строку, если auth выключен.
func OperatorFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(operatorKey).(string); ok {
		return id
	}
	return ""
}
