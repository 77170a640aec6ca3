package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"backend-runlog/internal/db"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	uniqueViolation = "23505"
)

var (
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
	signTokenFn       = func(s *Service, userID, kind string, ttl time.Duration) (string, error) {
		return s.signToken(userID, kind, ttl)
	}
)

type Service struct {
	secret   []byte
	db       db.Querier
	denylist *Denylist
}

func NewService(secret string, db db.Querier, denylist *Denylist) *Service {
	return &Service{
		secret:   []byte(secret),
		db:       db,
		denylist: denylist,
	}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return User{}, TokenResponse{}, ErrMissingCredentials
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	user, err := s.CreateUser(ctx, username, string(hash))
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

// CreateUser inserts a user with an already hashed password.
func (s *Service) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, user.ID, user.Username, user.PasswordHash)
	if err := row.Scan(&user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return user, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return User{}, TokenResponse{}, ErrMissingCredentials
	}

	row := s.db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = $1
	`, username)

	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, TokenResponse{}, ErrInvalidCredentials
		}
		return User{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, ErrInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, user.ID)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE id = $1
	`, id)

	var user User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID string) (TokenResponse, error) {
	access, err := signTokenFn(s, userID, kindAccess, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, userID, kindRefresh, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, userID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

// Refresh exchanges a live refresh token for a new pair. The old token is
// revoked in the same statement that looks it up, so it can be redeemed once.
func (s *Service) Refresh(ctx context.Context, token string) (TokenResponse, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return TokenResponse{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.Kind != kindRefresh {
		return TokenResponse{}, ErrTokenInvalid
	}

	userID, expiresAt, err := s.redeemRefreshToken(ctx, token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenResponse{}, fmt.Errorf("%w: refresh token unknown or already used", ErrTokenInvalid)
		}
		return TokenResponse{}, err
	}
	if userID != claims.UserID || time.Now().After(expiresAt) {
		return TokenResponse{}, fmt.Errorf("%w: refresh token expired", ErrTokenInvalid)
	}
	return s.GenerateTokens(ctx, userID)
}

// ValidateAccessToken parses an access token and rejects it when its id has
// been denylisted by a logout.
func (s *Service) ValidateAccessToken(ctx context.Context, token string) (*Claims, error) {
	return validateAccess(ctx, s.secret, s.denylist, token)
}

// Logout revokes every outstanding refresh token of the user and denylists
// the access token that made the request.
func (s *Service) Logout(ctx context.Context, claims *Claims) error {
	if _, err := s.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL
	`, claims.UserID); err != nil {
		return err
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := s.denylist.Revoke(ctx, claims.ID, expiresAt); err != nil {
		return fmt.Errorf("denylist access token: %w", err)
	}
	return nil
}

func (s *Service) signToken(userID, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	return parseClaims(s.secret, token)
}

func parseClaims(secret []byte, token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func validateAccess(ctx context.Context, secret []byte, denylist *Denylist, token string) (*Claims, error) {
	claims, err := parseClaims(secret, token)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kindAccess {
		return nil, ErrTokenInvalid
	}
	revoked, err := denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errDenylistUnavailable, err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) redeemRefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token = $1 AND revoked_at IS NULL
		RETURNING user_id, expires_at
	`, token)
	var userID string
	var expiresAt time.Time
	if err := row.Scan(&userID, &expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return userID, expiresAt, nil
}
