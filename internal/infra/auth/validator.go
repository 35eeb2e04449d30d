package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/libra-console/internal/domain"
)

var (
	ErrNoOperator   = errors.New("token does not identify an operator")
	ErrScopeMissing = errors.New("operator lacks required scope")
)

// Validator проверяет токены операторов консоли. Токены выпускает внешний IdP,
// консоль держит только публичный ключ.
type Validator struct {
	publicKey *rsa.PublicKey
	parser    *jwt.Parser
}

func NewValidator(pubKey *rsa.PublicKey) *Validator {
	return &Validator{
		publicKey: pubKey,
		// Только RSA и только с exp: бессрочный токен оператора не принимаем
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
			jwt.WithExpirationRequired(),
		),
	}
}

// VerifyToken проверяет подпись и сводит claims к виду, с которым работает консоль:
// OperatorID заполнен (из operator_id или sub), права собраны в Scopes.
func (v *Validator) VerifyToken(tokenStr string) (*domain.OperatorClaims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))

	claims := &domain.OperatorClaims{}
	token, err := v.parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.publicKey, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims.OperatorID == "" {
		claims.OperatorID = claims.Subject
	}
	if claims.OperatorID == "" {
		return nil, ErrNoOperator
	}

	if claims.Scopes == nil {
		claims.Scopes = make(map[string]bool)
	}
	for _, s := range strings.Fields(claims.Scope) {
		claims.Scopes[s] = true
	}

	return claims, nil
}

// Authorize - VerifyToken плюс проверка права. Ошибка права оборачивает ErrScopeMissing,
// чтобы middleware отличал 403 от 401.
func (v *Validator) Authorize(tokenStr, scope string) (*domain.OperatorClaims, error) {
	claims, err := v.VerifyToken(tokenStr)
	if err != nil {
		return nil, err
	}
	if !claims.HasScope(scope) {
		return claims, fmt.Errorf("%w: %s needs %s", ErrScopeMissing, claims.OperatorID, scope)
	}
	return claims, nil
}

// ParseRSAPublicKey превращает PEM в объект для проверки подписи
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("public key data is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return key, nil
}
