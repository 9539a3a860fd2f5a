package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/court-reservations/internal/persistence"
)

// UserRepository captures the persistence operations needed by the user service.
type UserRepository interface {
	CreateUser(ctx context.Context, user UserCredentials) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserCredentials(ctx context.Context, id int64) (UserCredentials, error)
	UpdateUser(ctx context.Context, user UserCredentials) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users  UserRepository
	hash   PasswordHasher
	now    func() time.Time
	logger *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users UserRepository, hash PasswordHasher, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, hash PasswordHasher, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = HashPassword
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// SignUp registers a customer account. It needs no principal.
func (s *UserService) SignUp(ctx context.Context, input SignUpInput) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	return s.create(ctx, "SignUp", 0, input, RoleCustomer)
}

// CreateUser lets a manager create an account with any role.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if err := Authorize(params.Principal, ActionManageUsers); err != nil {
		return User{}, err
	}
	role := params.Role
	if role == 0 {
		role = RoleCustomer
	}
	if !role.Valid() {
		return User{}, fieldError("role", "role must be one of customer, employee, manager")
	}
	return s.create(ctx, "CreateUser", params.Principal.UserID, params.Input, role)
}

// BootstrapManager creates the initial manager account used to operate a fresh
// deployment. It returns ErrAlreadyExists when the email is taken.
func (s *UserService) BootstrapManager(ctx context.Context, input SignUpInput) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	return s.create(ctx, "BootstrapManager", 0, input, RoleManager)
}

func (s *UserService) create(ctx context.Context, operation string, principalID int64, input SignUpInput, role Role) (user User, err error) {
	logger := s.loggerWith(ctx, operation,
		"principal_id", principalID,
		"role", role.String(),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	normalized := normalizeSignUpInput(input)
	vErr := validateSignUpInput(normalized)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hash(normalized.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now().UTC()
	user, err = s.users.CreateUser(ctx, UserCredentials{
		User: User{
			Email:     normalized.Email,
			FullName:  normalized.FullName,
			Phone:     normalized.Phone,
			Role:      role,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	})
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	return
}

// GetUser returns a user to themselves or to staff.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID int64) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return User{}, fmt.Errorf("user repository not configured")
	}
	if principal.UserID != userID {
		if err := Authorize(principal, ActionViewUsers); err != nil {
			return User{}, err
		}
	} else if principal.UserID == 0 {
		return User{}, ErrUnauthorized
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// ListUsers returns all users ordered by email for staff.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if err := Authorize(principal, ActionViewUsers); err != nil {
		return nil, err
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storageError("list users", err)
	}

	out := make([]User, len(users))
	copy(out, users)

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

// UpdateUser applies profile changes. Users edit their own profile; role and
// activation changes need a manager.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	in := params.Input
	self := params.Principal.UserID != 0 && params.Principal.UserID == params.UserID
	if !self || in.Role != nil || in.IsActive != nil {
		if err = Authorize(params.Principal, ActionManageUsers); err != nil {
			return
		}
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentials(ctx, params.UserID)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	vErr := &ValidationError{}
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			vErr.add("full_name", "full_name is required")
		}
		creds.User.FullName = name
	}
	if in.Phone != nil {
		creds.User.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			vErr.add("role", "role must be one of customer, employee, manager")
		}
		creds.User.Role = *in.Role
	}
	if in.IsActive != nil {
		creds.User.IsActive = *in.IsActive
	}
	if in.Password != nil && len(*in.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if in.Password != nil {
		creds.PasswordHash, err = s.hash(*in.Password)
		if err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}
	creds.User.UpdatedAt = s.now().UTC()

	user, err = s.users.UpdateUser(ctx, creds)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	return
}

// DeactivateUser disables an account without deleting its history.
func (s *UserService) DeactivateUser(ctx context.Context, principal Principal, userID int64) (User, error) {
	inactive := false
	return s.UpdateUser(ctx, UpdateUserParams{
		Principal: principal,
		UserID:    userID,
		Input:     UpdateUserInput{IsActive: &inactive},
	})
}

func normalizeSignUpInput(input SignUpInput) SignUpInput {
	return SignUpInput{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Password: input.Password,
		FullName: strings.TrimSpace(input.FullName),
		Phone:    strings.TrimSpace(input.Phone),
	}
}

func validateSignUpInput(input SignUpInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if addr, err := mail.ParseAddress(input.Email); err != nil || addr.Address != input.Email {
		vErr.add("email", "email is invalid")
	}

	if input.FullName == "" {
		vErr.add("full_name", "full_name is required")
	}
	if len(input.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	return vErr
}

func mapUserRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	return storageError("user repository", err)
}
