// Package middleware contain utilities middleware code
package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"InternHub-backend/internal/auth"
	"InternHub-backend/internal/database"
	"InternHub-backend/internal/model"
	"InternHub-backend/internal/utilities"
)

func unauthorized(ctx *gin.Context, msg string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: msg})
}

// bearerClaims validates the bearer token of the request and returns its
// claims, or the message to answer with.
func bearerClaims(ctx *gin.Context) (*jwt.RegisteredClaims, string) {
	tokenString, err := utilities.ExtractBearerToken(ctx)
	if err != nil {
		return nil, err.Error()
	}

	token, err := auth.ValidatedToken(tokenString)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, "Access token expired"
	case err != nil:
		return nil, "Failed to validate token: " + err.Error()
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !token.Valid || !ok {
		return nil, "Invalid access token"
	}
	if claims.Issuer != auth.JwtIssuer {
		return nil, "Invalid token issuer"
	}
	return claims, ""
}

// RequireAuth validates the bearer token and loads its subject. The claims
// are stored under "claims" for logout and the user under "user".
func RequireAuth(db *database.DBinstanceStruct) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, msg := bearerClaims(ctx)
		if claims == nil {
			unauthorized(ctx, msg)
			return
		}
		ctx.Set("claims", claims)

		var user model.User
		err := db.WithContext(ctx.Request.Context()).Where("id = ?", claims.Subject).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			unauthorized(ctx, "User not exist")
			return
		}
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: "Failed to retrieve user data: " + err.Error(),
			})
			return
		}

		ctx.Set("user", user)
		ctx.Next()
	}
}
