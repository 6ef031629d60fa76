package engine

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"keepup/internal/domain"
	"keepup/internal/repo"
)

const (
	otpTTL   = 10 * time.Minute
	tokenTTL = 24 * time.Hour
)

// Register creates an account with a bcrypt password hash.
func (e Engine) Register(ctx context.Context, email, name, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, errors.New("valid email is required")
	}
	if len(password) < 8 {
		return domain.User{}, errors.New("password must be at least 8 characters")
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    e.nowRFC3339(),
	}
	if err := e.Repo.InsertUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login checks credentials and, when they match, opens an email OTP
// challenge. No token is issued yet: the caller must come back through
// VerifyOTP with the mailed code.
func (e Engine) Login(ctx context.Context, email, password string) (domain.OTPChallenge, error) {
	u, err := e.Repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) {
		return domain.OTPChallenge{}, ErrInvalidCredentials
	}
	if err != nil {
		return domain.OTPChallenge{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.OTPChallenge{}, ErrInvalidCredentials
	}

	code, err := otpCode()
	if err != nil {
		return domain.OTPChallenge{}, err
	}
	now := e.now().UTC()
	c := domain.OTPChallenge{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		CodeHash:  hashOTP(code),
		ExpiresAt: now.Add(otpTTL).Format(time.RFC3339),
		CreatedAt: now.Format(time.RFC3339),
	}
	if err := e.Repo.InsertOTPChallenge(ctx, c); err != nil {
		return domain.OTPChallenge{}, err
	}
	body := fmt.Sprintf("Your KeepUp sign-in code is %s. It expires in %d minutes.", code, int(otpTTL.Minutes()))
	if err := e.Mailer.Send(ctx, u.Email, "Your KeepUp sign-in code", body); err != nil {
		e.log().Error("otp mail failed", zap.String("user_id", u.ID), zap.Error(err))
		return domain.OTPChallenge{}, fmt.Errorf("send code: %w", err)
	}
	return c, nil
}

// VerifyOTP consumes a challenge and issues a session token. A challenge is
// single use: replaying a consumed or expired code fails the same way a
// wrong code does.
func (e Engine) VerifyOTP(ctx context.Context, challengeID, code string) (string, domain.User, error) {
	c, err := e.Repo.GetOTPChallenge(ctx, challengeID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", domain.User{}, ErrInvalidOTP
	}
	if err != nil {
		return "", domain.User{}, err
	}
	expires, err := time.Parse(time.RFC3339, c.ExpiresAt)
	if err != nil || e.now().UTC().After(expires) {
		return "", domain.User{}, ErrInvalidOTP
	}
	if hashOTP(strings.TrimSpace(code)) != c.CodeHash {
		return "", domain.User{}, ErrInvalidOTP
	}
	consumed, err := e.Repo.ConsumeOTPChallenge(ctx, challengeID, e.nowRFC3339())
	if err != nil {
		return "", domain.User{}, err
	}
	if !consumed {
		return "", domain.User{}, ErrInvalidOTP
	}
	u, err := e.Repo.GetUser(ctx, c.UserID)
	if err != nil {
		return "", domain.User{}, err
	}
	token, err := e.issueToken(u.ID)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, u, nil
}

func (e Engine) issueToken(userID string) (string, error) {
	if e.Config == nil || e.Config.Server.JWTSecret == "" {
		return "", errors.New("jwt secret not configured")
	}
	now := e.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(e.Config.Server.JWTSecret))
}

// CreateAPIKey mints an API key for non-interactive clients. The plaintext
// is returned once; only its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID, name string) (domain.APIKey, string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", err
	}
	plaintext := "ku_" + hex.EncodeToString(buf)
	k := domain.APIKey{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plaintext),
		CreatedAt: e.nowRFC3339(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, k); err != nil {
		return domain.APIKey{}, "", err
	}
	return k, plaintext, nil
}

func (e Engine) ListAPIKeys(ctx context.Context, userID string) ([]domain.APIKey, error) {
	return e.Repo.ListAPIKeys(ctx, userID)
}

func (e Engine) DeleteAPIKey(ctx context.Context, userID, keyID string) error {
	k, err := e.Repo.GetAPIKey(ctx, keyID)
	if err != nil {
		return err
	}
	if k.UserID != userID {
		return ErrForbidden
	}
	return e.Repo.DeleteAPIKey(ctx, keyID)
}

// otpCode draws a uniform 6-digit code.
func otpCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
