package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Claims carried in the session token
type Claims struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// AuthService registers users and issues HS256 session tokens
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewAuthService(users UserStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: util.GetLogger(),
	}
}

type RegisterRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register stores a new user with a bcrypt password hash
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" || strings.TrimSpace(req.UserName) == "" {
		return nil, invalid("userName, email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		UserName: strings.TrimSpace(req.UserName),
		Email:    email,
		Password: string(hash),
		Role:     models.RoleUser,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, invalid("user with this email already exists")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

// Login checks credentials and returns the user with a signed token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, "", invalid("email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", invalid("don't have an account? Register")
		}
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) issue(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		ID:       user.ID.Hex(),
		Role:     user.Role,
		Email:    user.Email,
		UserName: user.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify parses token and confirms the user still exists
func (s *AuthService) Verify(ctx context.Context, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return nil, ErrUnauthorized
	}

	id, err := primitive.ObjectIDFromHex(claims.ID)
	if err != nil {
		return nil, ErrUnauthorized
	}
	if _, err := s.users.GetUserByID(ctx, id); err != nil {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

// EnsureAdmin creates the admin account unless a user with that email exists
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return invalid("admin email and password are required")
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.User{
		UserName: "admin",
		Email:    email,
		Password: string(hash),
		Role:     models.RoleAdmin,
	}
	if err := s.users.CreateUser(ctx, admin); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("Admin account ensured", zap.String("email", email))
	return nil
}
