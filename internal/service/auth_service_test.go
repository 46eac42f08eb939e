package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/diegnghtmr/vale/internal/dto"
	"github.com/diegnghtmr/vale/internal/model"
	"github.com/diegnghtmr/vale/internal/repository"
	"github.com/diegnghtmr/vale/pkg/jwt"
)

// ── 测试辅助 ──

func setupTestAuthService() (AuthService, *mockUserRepo, *mockBlacklist, *jwt.Manager) {
	cfg := testConfig()
	userRepo := newMockUserRepo()
	repo := &repository.Repository{User: userRepo, Course: newMockCourseRepo()}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	blacklist := newMockBlacklist()
	return NewAuthService(cfg, repo, jwtMgr, blacklist, zap.NewNop()), userRepo, blacklist, jwtMgr
}

func seedUser(t *testing.T, repo *mockUserRepo, email, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("生成密码哈希失败: %v", err)
	}
	user := &model.User{
		UserID:       "user-001",
		Name:         "Ana",
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
	}
	_ = repo.Create(context.Background(), user)
	return user
}

// ── Register 测试 ──

func TestAuthService_Register_Success(t *testing.T) {
	svc, userRepo, _, jwtMgr := setupTestAuthService()

	result, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     " Ana Gómez ",
		Email:    "Ana@Example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("Register 应成功: %v", err)
	}
	if result.User.Email != "ana@example.com" || result.User.Name != "Ana Gómez" {
		t.Errorf("邮箱应规范化为小写、名称去空格，实际: %+v", result.User)
	}
	if result.User.Role != model.RoleStudent {
		t.Errorf("期望角色 student，实际 %s", result.User.Role)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != result.User.ID || claims.TokenType != jwt.TokenTypeAccess {
		t.Errorf("Claims 错误: %+v", claims)
	}

	stored := userRepo.users[result.User.ID]
	if stored.PasswordHash == "secret123" {
		t.Error("密码不应明文存储")
	}
}

func TestAuthService_Register_EmailExists(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	seedUser(t, userRepo, "ana@example.com", "secret123")

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name:     "Otra",
		Email:    "ANA@example.com",
		Password: "secret123",
	})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("期望 ErrEmailExists，实际: %v", err)
	}
}

// ── Login 测试 ──

func TestAuthService_Login_Success(t *testing.T) {
	svc, userRepo, _, jwtMgr := setupTestAuthService()
	seedUser(t, userRepo, "ana@example.com", "secret123")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:      "ana@example.com",
		Password:   "secret123",
		RememberMe: true,
	})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	refresh, err := jwtMgr.ParseToken(result.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken 应可解析: %v", err)
	}
	if !refresh.RememberMe || refresh.TokenType != jwt.TokenTypeRefresh {
		t.Errorf("RefreshToken Claims 错误: %+v", refresh)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	seedUser(t, userRepo, "ana@example.com", "secret123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "wrong-pass"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("未知邮箱应返回 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── RefreshToken / Logout 测试 ──

func TestAuthService_RefreshToken_Rotates(t *testing.T) {
	svc, userRepo, blacklist, jwtMgr := setupTestAuthService()
	seedUser(t, userRepo, "ana@example.com", "secret123")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}

	refreshed, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("应签发新的 RefreshToken")
	}

	old, _ := jwtMgr.ParseToken(login.RefreshToken)
	if _, ok := blacklist.revoked[old.ID]; !ok {
		t.Error("旧 RefreshToken 应加入黑名单")
	}

	_, err = svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("重复使用旧 RefreshToken 应失败，实际: %v", err)
	}
}

func TestAuthService_RefreshToken_RejectsAccessToken(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	seedUser(t, userRepo, "ana@example.com", "secret123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "secret123"})
	_, err := svc.RefreshToken(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.AccessToken})
	if !errors.Is(err, ErrWrongTokenType) {
		t.Errorf("期望 ErrWrongTokenType，实际: %v", err)
	}
}

func TestAuthService_Logout_RevokesBothTokens(t *testing.T) {
	svc, userRepo, blacklist, jwtMgr := setupTestAuthService()
	seedUser(t, userRepo, "ana@example.com", "secret123")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "secret123"})
	access, _ := jwtMgr.ParseToken(login.AccessToken)

	if err := svc.Logout(context.Background(), access, &dto.LogoutRequest{RefreshToken: login.RefreshToken}); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if len(blacklist.revoked) != 2 {
		t.Errorf("期望 2 个 Token 加入黑名单，实际 %d", len(blacklist.revoked))
	}
	if ttl := blacklist.revoked[access.ID]; ttl <= 0 {
		t.Errorf("黑名单 TTL 应为剩余有效期，实际 %v", ttl)
	}
}

// ── Me / ChangePassword 测试 ──

func TestAuthService_Me_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	user := seedUser(t, userRepo, "ana@example.com", "secret123")

	err := svc.ChangePassword(context.Background(), user.UserID, &dto.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "newsecret123",
	})
	if !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("期望 ErrPasswordMismatch，实际: %v", err)
	}

	err = svc.ChangePassword(context.Background(), user.UserID, &dto.ChangePasswordRequest{
		OldPassword: "secret123",
		NewPassword: "newsecret123",
	})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "ana@example.com", Password: "newsecret123"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}
}
