package jwttoken

import (
	"loanbroker/internal/platform/middleware"
)

func ToMiddlewareClaims(claims *Claims) *middleware.Claims {
	return &middleware.Claims{
		UserID: claims.UserID,
		Role:   claims.Role,
		Email:  claims.Email,
		JTI:    claims.ID,
	}
}

// JWTServiceAdapter lets the auth middleware validate tokens without
// depending on jwt types.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.Claims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
