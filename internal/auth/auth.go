// Package auth is the credential service: it mints guest identities
// and carries them in signed session tokens.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/domain"
)

// Tokens older than this are considered stale even if the signature
// still verifies, forcing a fresh login.
const TokenMaxAge = 14 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrStaleToken   = errors.New("stale token")
)

type Claims struct {
	User  domain.UserIdentity `json:"user"`
	Guest bool                `json:"guest"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		maxAge: TokenMaxAge,
		now:    time.Now,
	}
}

// IssueGuest mints a guest identity for username and returns it with a
// signed session token.
func (s *Service) IssueGuest(username string) (string, domain.UserIdentity, error) {
	if err := domain.ValidateUsername(username); err != nil {
		return "", domain.UserIdentity{}, err
	}
	user := domain.UserIdentity{
		ID:            NewSnowflake(),
		Username:      username,
		Discriminator: randomInt(0, 99),
		Color:         RandomColor(true),
	}
	claims := Claims{
		User:  user,
		Guest: true,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", domain.UserIdentity{}, fmt.Errorf("sign token: %w", err)
	}
	log.Info().Str("module", "auth").Str("user", string(user.ID)).Str("username", username).Msg("issued guest identity")
	return token, user, nil
}

// Verify checks the token signature and staleness and returns the
// identity embedded in it.
func (s *Service) Verify(token string) (domain.UserIdentity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return domain.UserIdentity{}, ErrInvalidToken
	}
	if claims.IssuedAt == nil || s.now().Sub(claims.IssuedAt.Time) > s.maxAge {
		return domain.UserIdentity{}, ErrStaleToken
	}
	return claims.User, nil
}

// NewSnowflake returns a 24-hex-char opaque user id.
func NewSnowflake() domain.UserID {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return domain.UserID(hex.EncodeToString(buf))
}

// RandomColor produces a shuffled "#rrggbb" with one channel pinned at
// full brightness; pastel keeps the other channels high.
func RandomColor(pastel bool) string {
	var color [3]int
	if pastel {
		color = [3]int{255, randomInt(162, 255), 162}
	} else {
		color = [3]int{255, randomInt(36, 255), 36}
	}
	for i := len(color) - 1; i > 0; i-- {
		j := randomInt(0, i)
		color[i], color[j] = color[j], color[i]
	}
	return fmt.Sprintf("#%02x%02x%02x", color[0], color[1], color[2])
}

func randomInt(min, max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max-min+1)))
	if err != nil {
		panic(err)
	}
	return min + int(n.Int64())
}
