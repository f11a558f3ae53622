package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret = []byte("secret")

// SetSecret allows injecting the secret from config
func SetSecret(secret string) {
	jwtSecret = []byte(secret)
}

// UserClaimsKey is the fiber.Ctx locals key holding the current actor.
const UserClaimsKey = "user_claims"

// UserClaims is the opaque current-actor identity issued by the auth
// subsystem. The approval engine only ever reads it.
type UserClaims struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	DepartmentCode string `json:"department_code"`
	TeamCode       string `json:"team_code"`
	PositionCode   string `json:"position_code"`
	jwt.RegisteredClaims
}

func GenerateToken(userID, name, departmentCode, teamCode, positionCode string) (string, error) {
	claims := UserClaims{
		UserID:         userID,
		Name:           name,
		DepartmentCode: departmentCode,
		TeamCode:       teamCode,
		PositionCode:   positionCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenSignatureInvalid
}
