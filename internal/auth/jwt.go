package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens for local logins.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *Issuer) GenerateToken(userID, name, email, role string) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// JWTVerifier checks HS256 tokens locally. It never reports Unavailable.
type JWTVerifier struct {
	secret []byte
	roles  Roles
}

func NewJWTVerifier(secret string, roles Roles) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), roles: roles}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) Result {
	claims, err := v.parse(tokenString)
	if err != nil {
		return Result{Outcome: Invalid, Err: fmt.Errorf("%w: %v", ErrInvalidToken, err)}
	}

	subject := claims.UserID
	if subject == "" {
		subject = claims.Subject
	}
	if subject == "" {
		return Result{Outcome: Invalid, Err: fmt.Errorf("%w: no subject", ErrInvalidToken)}
	}

	return Result{
		Outcome: Valid,
		Identity: Identity{
			SubjectID: subject,
			Operator:  v.roles.IsOperator(claims.Role),
		},
	}
}

func (v *JWTVerifier) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("token not valid")
}
