package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/workout-tracker/internal/config"
	"github.com/iliyamo/workout-tracker/internal/database"
	"github.com/iliyamo/workout-tracker/internal/model"
	"github.com/iliyamo/workout-tracker/internal/repository"
	"github.com/iliyamo/workout-tracker/internal/utils"
)

// bcrypt ignores input past 72 bytes.
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

// Session is the result of a successful sign-in or refresh.  Refresh.Raw
// is the only copy of the refresh token; the database keeps its hash.
type Session struct {
	User    *model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// UserService manages accounts and their refresh tokens.
type UserService struct {
	cfg        config.Config
	tx         database.Transactor
	users      UserStore
	tokens     TokenStore
	logs       WorkoutLogStore
	maxWeights MaxWeightStore
	log        *zap.Logger
}

func NewUserService(cfg config.Config, tx database.Transactor, users UserStore, tokens TokenStore, logs WorkoutLogStore, maxWeights MaxWeightStore, log *zap.Logger) *UserService {
	return &UserService{cfg: cfg, tx: tx, users: users, tokens: tokens, logs: logs, maxWeights: maxWeights, log: log.Named("user")}
}

// SignUp creates an account.  Emails are unique across live and deleted
// accounts; a taken email yields ErrConflict.
func (s *UserService) SignUp(ctx context.Context, email, password, nickName string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email", model.ErrValidation)
	}
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d-%d bytes", model.ErrValidation, minPasswordLen, maxPasswordLen)
	}
	nickName, err := model.NewNickName(nickName)
	if err != nil {
		return nil, err
	}

	taken, err := s.users.EmailTaken(ctx, email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflict("email already exists")
	}
	id, err := s.users.Create(ctx, email, password, nickName, s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, conflict("email already exists")
		}
		return nil, err
	}
	s.log.Info("user signed up", zap.Uint64("user_id", id))
	return s.users.GetByID(ctx, id)
}

// SignIn verifies credentials and issues a token pair.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (s *UserService) Refresh(ctx context.Context, raw string) (*Session, error) {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	userID, err := s.tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		return nil, err
	}
	if err := s.tokens.RevokeByHash(ctx, hash); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrUnauthorized)
		}
		return nil, err
	}
	return s.issue(ctx, u)
}

// SignOut revokes one refresh token.
func (s *UserService) SignOut(ctx context.Context, raw string) error {
	hash := utils.HashRefreshRaw(strings.TrimSpace(raw))
	if _, err := s.tokens.ValidateRefresh(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
		}
		return err
	}
	return s.tokens.RevokeByHash(ctx, hash)
}

// Profile returns the live account userID.
func (s *UserService) Profile(ctx context.Context, userID uint64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("user %d", userID)
		}
		return nil, err
	}
	return u, nil
}

// Rename changes the nickname and rewrites its denormalized copies on
// workout logs and max-weight rows in the same transaction.
func (s *UserService) Rename(ctx context.Context, userID uint64, nickName string) (*model.User, error) {
	nickName, err := model.NewNickName(nickName)
	if err != nil {
		return nil, err
	}
	err = withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		if _, err := s.users.GetByIDTx(ctx, tx, userID, repository.LockForUpdate); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user %d", userID)
			}
			return err
		}
		if err := s.users.UpdateNickNameTx(ctx, tx, userID, nickName); err != nil {
			return err
		}
		if err := s.logs.RenameNickNameTx(ctx, tx, userID, nickName); err != nil {
			return fmt.Errorf("rename on workout logs: %w", err)
		}
		if err := s.maxWeights.RenameNickNameTx(ctx, tx, userID, nickName); err != nil {
			return fmt.Errorf("rename on max weights: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, userID)
}

// Delete soft-deletes the account and revokes all of its refresh tokens.
// Access tokens stop working because the auth middleware only accepts
// live users.
func (s *UserService) Delete(ctx context.Context, userID uint64) error {
	err := withinTx(ctx, s.tx, func(tx *sql.Tx) error {
		if err := s.users.SoftDeleteTx(ctx, tx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("user %d", userID)
			}
			return err
		}
		return s.tokens.RevokeAllForUserTx(ctx, tx, userID)
	})
	if err != nil {
		return err
	}
	s.log.Info("user deleted", zap.Uint64("user_id", userID))
	return nil
}

func (s *UserService) issue(ctx context.Context, u *model.User) (*Session, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, u.ID, s.cfg.AccessTTLMin)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &Session{User: u, Access: access, Refresh: refresh}, nil
}
