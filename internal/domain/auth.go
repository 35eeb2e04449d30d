package domain

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims - claims токена администратора консоли (RS256).
// Права приходят либо картой scopes, либо OAuth2 строкой scope ("borrow.view borrow.decide").
type OperatorClaims struct {
	OperatorID string          `json:"operator_id"`
	Scopes     map[string]bool `json:"scopes"` // "borrow.decide": true
	Scope      string          `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// HasScope смотрит в Scopes. Строку Scope туда сводит валидатор токенов.
func (c *OperatorClaims) HasScope(scope string) bool {
	return c.Scopes[scope]
}

// ScopeDecide право согласовывать заявки на выдачу
const ScopeDecide = "borrow.decide"
