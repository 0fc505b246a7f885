package auth

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	// Load env file into environments.
	_ "github.com/joho/godotenv/autoload"
)

// JwtIssuer is the issuer claim of every access token.
const JwtIssuer = "InternHub"

var (
	secretKey = []byte(os.Getenv("SECRET_KEY"))
	tokenTTL  = time.Hour
)

func init() {
	if len(secretKey) == 0 {
		secretKey = make([]byte, 32)
		if _, err := rand.Read(secretKey); err != nil {
			panic(fmt.Sprintf("failed to generate signing key: %s", err))
		}
	}
}

// Configure sets the signing secret and the access token lifetime. An
// empty secret keeps the current one.
func Configure(secret string, ttl time.Duration) {
	if secret != "" {
		secretKey = []byte(secret)
	} else if os.Getenv("SECRET_KEY") == "" {
		slog.Warn("SECRET_KEY is not set, tokens will not survive a restart")
	}
	if ttl > 0 {
		tokenTTL = ttl
	}
}

// GenerateStandardToken issues an access token for user id with the configured lifetime.
func GenerateStandardToken(id uuid.UUID) (string, error) {
	return GenerateTokenWithDuration(id, tokenTTL, JwtIssuer)
}

// GenerateTokenWithDuration issues a token for id valid for d. Tests use it
// to mint expired tokens or tokens from another issuer.
func GenerateTokenWithDuration(id uuid.UUID, d time.Duration, issuer string) (string, error) {
	now := time.Now()
	generatedAccessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   id.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(d)),
		IssuedAt:  jwt.NewNumericDate(now),
	})

	signedToken, err := generatedAccessToken.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("Failed to sign token: %s", err)
	}
	return signedToken, nil
}

// ValidatedToken parses encodeToken into *jwt.RegisteredClaims and checks
// its signature and expiry.
func ValidatedToken(encodeToken string) (*jwt.Token, error) {
	return jwt.ParseWithClaims(encodeToken, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, isvalid := token.Method.(*jwt.SigningMethodHMAC); !isvalid {
			return nil, fmt.Errorf("Invalid token")
		}
		return secretKey, nil
	})
}
