package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/AdityaDodda/purchase-kandhari/internal/cache"
	"github.com/AdityaDodda/purchase-kandhari/internal/mailer"
	"github.com/AdityaDodda/purchase-kandhari/internal/middleware"
	"github.com/AdityaDodda/purchase-kandhari/internal/model"
	"github.com/AdityaDodda/purchase-kandhari/internal/repository"
)

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
	resetTokenTTL   = 30 * time.Minute
)

// ErrInvalidCredentials covers unknown users, wrong passwords and deactivated
// accounts alike, so responses do not reveal which it was.
var ErrInvalidCredentials = errors.New("invalid credentials")

// --- DTOs ---

type SignupRequest struct {
	EmployeeNumber string `json:"employee_number" binding:"required"`
	FullName       string `json:"full_name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Mobile         string `json:"mobile"`
	Department     string `json:"department" binding:"required"`
	Location       string `json:"location" binding:"required"`
	Password       string `json:"password" binding:"required,min=6"`
	Role           string `json:"role"`
}

type LoginRequest struct {
	EmployeeNumber string `json:"employee_number" binding:"required"`
	Password       string `json:"password" binding:"required"`
}

type UpdateProfileRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email" binding:"omitempty,email"`
	Mobile     string `json:"mobile"`
	Department string `json:"department"`
	Location   string `json:"location"`
	Role       string `json:"role"` // only honored for admin callers
	IsActive   *bool  `json:"is_active"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type TokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	User         *UserResponse `json:"user"`
}

// UserResponse returns a User without exposing sensitive data
type UserResponse struct {
	ID             uint   `json:"id"`
	EmployeeNumber string `json:"employee_number"`
	FullName       string `json:"full_name"`
	Email          string `json:"email"`
	Mobile         string `json:"mobile"`
	Department     string `json:"department"`
	Location       string `json:"location"`
	Role           string `json:"role"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// --- Interface ---

type UserService interface {
	Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetByID(ctx context.Context, id uint) (*UserResponse, error)
	List(ctx context.Context, page, limit int) ([]UserResponse, int64, error)
	Update(ctx context.Context, id uint, req UpdateProfileRequest, actorRole string) (*UserResponse, error)
	Deactivate(ctx context.Context, id uint) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type userService struct {
	repo        repository.UserRepository
	tokens      *cache.Client
	mail        *mailer.Mailer
	frontendURL string
}

// NewUserService returns a UserService. tokens and mail may be nil; the
// forgot/reset flow then reports itself unavailable.
func NewUserService(repo repository.UserRepository, tokens *cache.Client, mail *mailer.Mailer, frontendURL string) UserService {
	return &userService{repo: repo, tokens: tokens, mail: mail, frontendURL: frontendURL}
}

// --- Implementation ---

func (s *userService) Signup(ctx context.Context, req SignupRequest) (*TokenResponse, error) {
	if _, err := s.repo.GetByEmployeeNumber(ctx, req.EmployeeNumber); err == nil {
		return nil, fmt.Errorf("employee number already exists")
	}
	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := req.Role
	if role == "" {
		role = model.RoleRequester
	}

	user := &model.User{
		EmployeeNumber: req.EmployeeNumber,
		FullName:       req.FullName,
		Email:          req.Email,
		Mobile:         req.Mobile,
		Department:     req.Department,
		Location:       req.Location,
		Password:       string(hashed),
		Role:           role,
		IsActive:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmployeeNumber(ctx, req.EmployeeNumber)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, refreshToken)
		return nil, fmt.Errorf("refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	// Rotate: the old token is single-use
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *userService) GetByID(ctx context.Context, id uint) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return mapUser(user), nil
}

func (s *userService) List(ctx context.Context, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	result := make([]UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *mapUser(&users[i]))
	}
	return result, total, nil
}

func (s *userService) Update(ctx context.Context, id uint, req UpdateProfileRequest, actorRole string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Mobile != "" {
		user.Mobile = req.Mobile
	}
	if req.Department != "" {
		user.Department = req.Department
	}
	if req.Location != "" {
		user.Location = req.Location
	}
	if actorRole == model.RoleAdmin {
		if req.Role != "" {
			user.Role = req.Role
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return mapUser(user), nil
}

func (s *userService) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteRefreshTokensForUser(ctx, id)
}

// ForgotPassword issues a reset token and mails the link. Unknown emails get
// the same silent success so the endpoint does not enumerate accounts.
func (s *userService) ForgotPassword(ctx context.Context, email string) error {
	if s.tokens == nil {
		return fmt.Errorf("password reset is not available")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		log.WithField("email", email).Info("password reset requested for unknown email")
		return nil
	}

	token := uuid.New().String()
	if err := s.tokens.SetResetToken(ctx, token, user.ID, resetTokenTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	if s.mail != nil {
		if err := s.mail.SendPasswordReset(user.Email, resetLink); err != nil {
			if errors.Is(err, mailer.ErrNotConfigured) {
				log.WithField("link", resetLink).Info("smtp not configured, reset link logged")
				return nil
			}
			return fmt.Errorf("failed to send reset email: %w", err)
		}
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if s.tokens == nil {
		return fmt.Errorf("password reset is not available")
	}

	userID, err := s.tokens.GetResetToken(ctx, token)
	if err != nil {
		if cache.IsNotFound(err) {
			return fmt.Errorf("invalid or expired reset token")
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("user not found")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashed)

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	_ = s.tokens.DeleteResetToken(ctx, token)
	// Force re-login everywhere
	return s.repo.DeleteRefreshTokensForUser(ctx, user.ID)
}

// --- Helpers ---

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(user.ID), 10),
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(accessTokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(middleware.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(refreshTokenTTL),
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        signed,
		RefreshToken: refresh.Token,
		User:         mapUser(user),
	}, nil
}

func mapUser(user *model.User) *UserResponse {
	return &UserResponse{
		ID:             user.ID,
		EmployeeNumber: user.EmployeeNumber,
		FullName:       user.FullName,
		Email:          user.Email,
		Mobile:         user.Mobile,
		Department:     user.Department,
		Location:       user.Location,
		Role:           user.Role,
		IsActive:       user.IsActive,
		CreatedAt:      user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      user.UpdatedAt.Format(time.RFC3339),
	}
}
