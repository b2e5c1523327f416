package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/token"
)

// RegisterInput 注册参数
type RegisterInput struct {
	FullName string `json:"full_name" validate:"required,max=128"`
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ProfileInput 资料更新参数，nil 字段不修改
type ProfileInput struct {
	FullName      *string `json:"full_name" validate:"omitempty,min=1,max=128"`
	Password      *string `json:"password" validate:"omitempty,min=6,max=72"`
	AccountNumber *string `json:"account_number" validate:"omitempty,max=64"`
}

// AuthResult 登录/注册结果
type AuthResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// AuthService 账号与令牌
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Authenticate 校验令牌并加载当前用户，被封禁用户返回 ErrAccountSuspended
	Authenticate(ctx context.Context, raw string) (*model.User, error)
	Me(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error)
}

type authService struct {
	users  repository.UserRepository
	tokens *token.Manager
}

func NewAuthService(users repository.UserRepository, tokens *token.Manager) AuthService {
	return &authService{users: users, tokens: tokens}
}

// HashPassword bcrypt 哈希，供 seed 工具复用
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	exists, err := s.users.Exists(ctx, in.Email, in.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:       uuid.NewString(),
		FullName: in.FullName,
		Username: in.Username,
		Email:    in.Email,
		Password: hash,
		Role:     model.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if u.IsSuspended {
		return nil, suspendedErr(u)
	}
	return s.issue(u)
}

func (s *authService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, token.ErrInvalidToken
		}
		return nil, err
	}
	if u.IsSuspended {
		return nil, suspendedErr(u)
	}
	return u, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	fields := map[string]any{}
	if in.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*in.FullName)
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}
	if in.AccountNumber != nil {
		if !u.IsAdmin() {
			return nil, ErrForbidden
		}
		fields["account_number"] = strings.TrimSpace(*in.AccountNumber)
	}
	if len(fields) == 0 {
		return u, nil
	}
	if err := s.users.Updates(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

func (s *authService) issue(u *model.User) (*AuthResult, error) {
	tok, exp, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

func suspendedErr(u *model.User) error {
	if u.SuspensionReason == "" {
		return ErrAccountSuspended
	}
	return fmt.Errorf("%w: %s", ErrAccountSuspended, u.SuspensionReason)
}
