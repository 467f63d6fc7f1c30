package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	"github.com/Manchinn/CSLogbook-sub002/internal/repository"
	pkgjwt "github.com/Manchinn/CSLogbook-sub002/pkg/jwt"
	"github.com/Manchinn/CSLogbook-sub002/pkg/redis"
)

// ── 错误定义 ──

var (
	ErrInvalidCredentials = errors.New("学号或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrInvalidRefresh     = errors.New("refresh token 无效")
)

// AuthService 认证服务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, claims *pkgjwt.Claims) error
	RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}

type authService struct {
	repo   *repository.Repository
	jwtMgr *pkgjwt.Manager
	rdb    *redis.Client // 可为 nil（Redis 降级运行时黑名单停用）
	logger *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(repo *repository.Repository, jwtMgr *pkgjwt.Manager, rdb *redis.Client, logger *zap.Logger) AuthService {
	return &authService{repo: repo, jwtMgr: jwtMgr, rdb: rdb, logger: logger}
}

// Login 学号 + 密码登录
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.repo.User.GetByStudentCode(ctx, req.StudentCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 统一返回凭证错误，不暴露账号是否存在
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	resp, err := s.issueTokens(user, req.RememberMe)
	if err != nil {
		return nil, err
	}

	s.logger.Info("用户登录成功",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role))
	return resp, nil
}

// Logout 将当前 Token 加入黑名单（Redis 不可用时静默降级）
func (s *authService) Logout(ctx context.Context, claims *pkgjwt.Claims) error {
	if s.rdb == nil {
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.rdb.BlacklistToken(ctx, claims.ID, ttl); err != nil {
		s.logger.Warn("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// RefreshToken 用 refresh token 换取新的 token 对
func (s *authService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	if claims.TokenType != "refresh" {
		return nil, ErrInvalidRefresh
	}

	if s.rdb != nil {
		blacklisted, err := s.rdb.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Warn("黑名单检查失败", zap.Error(err))
		} else if blacklisted {
			return nil, ErrInvalidRefresh
		}
	}

	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 旧 refresh token 作废（轮换）
	if s.rdb != nil {
		_ = s.rdb.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	}

	return s.issueTokens(user, claims.RememberMe)
}

// GetCurrentUser 查询当前登录用户信息
func (s *authService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *authService) issueTokens(user *model.User, rememberMe bool) (*dto.TokenResponse, error) {
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, user.Role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtMgr.GenerateRefreshToken(user.UserID, user.Role, rememberMe)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         *toUserResponse(user),
	}, nil
}

func toUserResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:          user.UserID,
		Name:        user.Name,
		Email:       user.Email,
		StudentCode: user.StudentCode,
		Role:        user.Role,
	}
}
