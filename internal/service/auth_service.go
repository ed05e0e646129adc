package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"learnsphere/internal/config"
	"learnsphere/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type AuthService struct {
	users  UserStore
	states OAuthStateStore
	cfg    config.AuthConfig
	google *oauth2.Config
}

func NewAuthService(users UserStore, states OAuthStateStore, cfg config.AuthConfig, googleCfg config.GoogleConfig) *AuthService {
	s := &AuthService{users: users, states: states, cfg: cfg}
	if googleCfg.ClientID != "" && googleCfg.ClientSecret != "" {
		s.google = &oauth2.Config{
			ClientID:     googleCfg.ClientID,
			ClientSecret: googleCfg.ClientSecret,
			RedirectURL:  googleCfg.RedirectURL,
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email", "https://www.googleapis.com/auth/userinfo.profile"},
			Endpoint:     google.Endpoint,
		}
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	role := req.Role
	if role == "" {
		role = models.RoleLearner
	}
	// admins are provisioned, never self-registered
	if role != models.RoleLearner && role != models.RoleInstructor {
		return nil, validation("role %q cannot be self-assigned", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         role,
		Provider:     "password",
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateDoc) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	log.Printf("Registered user %s with role %s", user.ID, user.Role)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, session models.Session) (*models.User, error) {
	return s.users.FindByID(ctx, session.UserID)
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, expiresAt, err := s.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) GenerateToken(user *models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    "learnsphere",
		},
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error generate token string: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *AuthService) VerifyToken(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&models.Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(s.cfg.JWTSecret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GoogleLoginURL issues a one-time state and returns the consent URL.
func (s *AuthService) GoogleLoginURL(ctx context.Context) (string, error) {
	if s.google == nil {
		return "", ErrOAuthDisabled
	}
	state := uuid.NewString()
	if err := s.states.Save(ctx, state); err != nil {
		return "", err
	}
	return s.google.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// GoogleCallback finishes the OAuth flow.
func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*models.AuthResponse, error) {
	if s.google == nil {
		return nil, ErrOAuthDisabled
	}
	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOAuthState
	}

	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange google code: %w", err)
	}
	info, err := s.googleUserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.signInGoogle(ctx, info)
}

// signInGoogle finds the user for a Google profile, creating a learner on
// first sign-in.
func (s *AuthService) signInGoogle(ctx context.Context, info *models.GoogleUserInfo) (*models.AuthResponse, error) {
	if info.Email == "" {
		return nil, validation("google account has no email")
	}

	user, err := s.users.FindByEmail(ctx, strings.ToLower(info.Email))
	switch {
	case err == nil:
		return s.issue(user)
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	user = &models.User{
		Email:     strings.ToLower(info.Email),
		Name:      info.Name,
		Role:      models.RoleLearner,
		Provider:  "google",
		AvatarURL: info.Picture,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("Created user %s from google sign-in", user.ID)
	return s.issue(user)
}

func (s *AuthService) googleUserInfo(ctx context.Context, token *oauth2.Token) (*models.GoogleUserInfo, error) {
	client := s.google.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed with status: %d", resp.StatusCode)
	}

	var info models.GoogleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to parse user info: %w", err)
	}
	return &info, nil
}

// FrontendRedirect builds the URL the browser lands on after Google
// sign-in.
func (s *AuthService) FrontendRedirect(token string) string {
	return strings.TrimRight(s.cfg.FEAddress, "/") + "/auth/callback?token=" + token
}
