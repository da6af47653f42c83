// Package auth は利用者の登録・ログインとトークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/bookshelf/internal/metrics"
	"github.com/hitoshi/bookshelf/internal/model"
	"github.com/hitoshi/bookshelf/internal/repository"
)

// MinPasswordLength は登録時のパスワードの最小文字数。
const MinPasswordLength = 6

// TokenIssuerService はトークン発行のインターフェース。
type TokenIssuerService interface {
	Issue(user *model.User) (string, time.Time, error)
}

// LoginResult はログイン成功時の結果。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// Service は利用者の登録・認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   TokenIssuerService
	metrics  metrics.MetricsCollector
	config   ServiceConfig
	now      func() time.Time

	// dummyHash は未登録ユーザーのログイン時に比較するハッシュ
	dummyHash []byte
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokens TokenIssuerService,
	collector metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	// 生成に失敗した場合はnilのまま比較し、常に不一致となる
	dummy, _ := bcrypt.GenerateFromPassword([]byte("bookshelf-dummy-password"), config.BcryptCost)
	return &Service{
		userRepo:  userRepo,
		tokens:    tokens,
		metrics:   collector,
		config:    config,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Register は利用者を登録する。
// roleを省略した場合は一般利用者として登録する。
func (s *Service) Register(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if role == "" {
		role = model.RoleUser
	}

	v := &model.ValidationError{}
	if username == "" {
		v.Add("Username is required")
	}
	if password == "" {
		v.Add("Password is required")
	} else if len([]rune(password)) < MinPasswordLength {
		v.Add(fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if !role.Valid() {
		v.Add("Role must be either user or admin")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUsernameTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 同時登録による一意制約違反
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUsernameTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

// Authenticate はユーザー名とパスワードを検証し、トークンを発行する。
// 未登録のユーザー名とパスワード不一致は同一のエラーを返す。
func (s *Service) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)

	v := &model.ValidationError{}
	if username == "" {
		v.Add("Username is required")
	}
	if password == "" {
		v.Add("Password is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// 応答時間からユーザー名の存在を推測されないよう、ハッシュ比較を行ってから失敗させる
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.metrics.RecordLogin(false)
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.metrics.RecordLogin(false)
		slog.Warn("login failed", slog.String("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError()
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.metrics.RecordLogin(true)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}
