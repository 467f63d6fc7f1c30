package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Manchinn/CSLogbook-sub002/config"
	"github.com/Manchinn/CSLogbook-sub002/internal/dto"
	"github.com/Manchinn/CSLogbook-sub002/internal/model"
	pkgjwt "github.com/Manchinn/CSLogbook-sub002/pkg/jwt"
)

func newAuthService(store *memStore) AuthService {
	jwtMgr := pkgjwt.NewManager(&config.AuthConfig{
		JWTSecret:               "test-secret-for-auth-service",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTokenTTLDefault:  24 * time.Hour,
		RefreshTokenTTLRemember: 30 * 24 * time.Hour,
	})
	return NewAuthService(newTestRepo(store), jwtMgr, nil, testLogger())
}

func addUserWithPassword(store *memStore, code, password string) *model.User {
	u := store.addUser("นักศึกษา A", code, model.RoleStudent)
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u.PasswordHash = string(hash)
	return u
}

func TestLogin(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(store)
	user := addUserWithPassword(store, "64001", "secret123")

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{
		StudentCode: "64001", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Error("期望返回 token 对")
	}
	if resp.User.ID != user.UserID || resp.User.Role != model.RoleStudent {
		t.Errorf("用户信息不符: %+v", resp.User)
	}
	if resp.ExpiresIn != int((15 * time.Minute).Seconds()) {
		t.Errorf("期望有效期 900 秒，实际=%d", resp.ExpiresIn)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(store)
	addUserWithPassword(store, "64001", "secret123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		StudentCode: "64001", Password: "wrong",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际=%v", err)
	}

	// 账号不存在同样返回凭证错误
	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		StudentCode: "99999", Password: "secret123",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际=%v", err)
	}
}

func TestRefreshToken(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(store)
	addUserWithPassword(store, "64001", "secret123")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		StudentCode: "64001", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("登录失败: %v", err)
	}

	refreshed, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: login.RefreshToken,
	})
	if err != nil {
		t.Fatalf("刷新失败: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("期望返回新 access token")
	}

	// access token 不能当 refresh token 用
	_, err = svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{
		RefreshToken: login.AccessToken,
	})
	if !errors.Is(err, ErrInvalidRefresh) {
		t.Errorf("期望 ErrInvalidRefresh，实际=%v", err)
	}
}

func TestGetCurrentUser(t *testing.T) {
	store := newMemStore()
	svc := newAuthService(store)
	user := addUserWithPassword(store, "64001", "secret123")

	resp, err := svc.GetCurrentUser(context.Background(), user.UserID)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if resp.StudentCode != "64001" {
		t.Errorf("期望学号 64001，实际=%s", resp.StudentCode)
	}

	if _, err := svc.GetCurrentUser(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际=%v", err)
	}
}
