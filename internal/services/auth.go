package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/sdrdesk/internal/config"
	"github.com/huangang/sdrdesk/internal/models"
	"github.com/huangang/sdrdesk/internal/repository"
	"github.com/huangang/sdrdesk/internal/utils"
	"github.com/huangang/sdrdesk/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrInvalidAuthType    = errors.New("invalid auth type")
	ErrUsernameTaken      = errors.New("username already exists")
)

type UserStore interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username, authType string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
	CountByRole(ctx context.Context, role string) (int64, error)
	List(ctx context.Context) ([]models.User, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
}

type AuthService struct {
	users       UserStore
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
}

func NewAuthService(users UserStore, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig) *AuthService {
	return &AuthService{
		users:       users,
		ldapService: NewLDAPService(ldapCfg),
		jwtConfig:   jwtCfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type LoginResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expire_at"`
	User     *models.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	var user *models.User
	var err error

	switch req.AuthType {
	case "", models.AuthTypeLocal:
		user, err = s.localAuth(ctx, req.Username, req.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(ctx, req.Username, req.Password)
	default:
		return nil, ErrInvalidAuthType
	}
	if err != nil {
		return nil, err
	}

	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, hours)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.users.Save(ctx, user); err != nil {
		logger.Warnf("[Auth] Failed to record last login for %s: %v", user.Username, err)
	}

	return &LoginResult{
		Token:    token,
		ExpireAt: now.Add(time.Duration(hours) * time.Hour),
		User:     user,
	}, nil
}

func (s *AuthService) localAuth(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username, models.AuthTypeLocal)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ldapAuth creates the local account on first login and refreshes its
// email and display name afterwards. The sales rep name is only set on
// creation so admins can correct it.
func (s *AuthService) ldapAuth(ctx context.Context, username, password string) (*models.User, error) {
	ldapUser, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByUsername(ctx, ldapUser.Username, models.AuthTypeLDAP)
	if errors.Is(err, repository.ErrNotFound) {
		user = &models.User{
			Username:     ldapUser.Username,
			Email:        ldapUser.Email,
			SalesRepName: ldapUser.DisplayName,
			Role:         models.RoleUser,
			AuthType:     models.AuthTypeLDAP,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		logger.Infof("[Auth] Created LDAP user %s", user.Username)
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	user.Email = ldapUser.Email
	return user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService.IsEnabled()
}

// CreateAdminIfNotExists bootstraps admin/admin on an empty install.
func (s *AuthService) CreateAdminIfNotExists(ctx context.Context) error {
	count, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := utils.HashPassword("admin")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username: "admin",
		Password: hashedPassword,
		Role:     models.RoleAdmin,
		AuthType: models.AuthTypeLocal,
		IsActive: true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return err
	}
	logger.Warnf("[Auth] Created default admin user; change its password")
	return nil
}

type CreateUserRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	Email        string `json:"email"`
	SalesRepName string `json:"sales_rep_name"`
	Role         string `json:"role"`
}

// CreateUser adds a local account. Role defaults to user.
func (s *AuthService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleAI:
	default:
		return nil, &ValidationError{Errors: []string{"role must be one of user, admin, ai"}}
	}
	if username == "" {
		return nil, &ValidationError{Errors: []string{"username is required"}}
	}

	taken, err := s.users.UsernameTaken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Password:     hashed,
		Email:        strings.TrimSpace(req.Email),
		SalesRepName: strings.TrimSpace(req.SalesRepName),
		Role:         role,
		AuthType:     models.AuthTypeLocal,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.AuthType != models.AuthTypeLocal {
		return &ValidationError{Errors: []string{"LDAP users cannot change password here"}}
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return &ValidationError{Errors: []string{"incorrect old password"}}
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	return s.users.Save(ctx, user)
}

// ErrSelfModification guards admins against locking themselves out.
var ErrSelfModification = errors.New("cannot modify your own account")

type UpdateUserRequest struct {
	Role         *string `json:"role"`
	IsActive     *bool   `json:"is_active"`
	SalesRepName *string `json:"sales_rep_name"`
	Email        *string `json:"email"`
}

// UpdateUser changes role, activation, email or sales rep name of another
// account. Access checks see the change on the next request.
func (s *AuthService) UpdateUser(ctx context.Context, actorID, id uint, req *UpdateUserRequest) (*models.User, error) {
	if actorID == id {
		return nil, ErrSelfModification
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Role != nil {
		switch *req.Role {
		case models.RoleUser, models.RoleAdmin, models.RoleAI:
			user.Role = *req.Role
		default:
			return nil, &ValidationError{Errors: []string{"role must be one of user, admin, ai"}}
		}
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.SalesRepName != nil {
		user.SalesRepName = strings.TrimSpace(*req.SalesRepName)
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
