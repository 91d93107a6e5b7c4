package service

import (
	"context"
	"errors"

	"budgetbot/database"
	"budgetbot/models"
)

// Role 身份解析结果
type Role int

const (
	RoleUnauthorized Role = iota
	RoleMember
	RoleAdmin
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return "unauthorized"
	}
}

// ErrAlreadyAuthorized 目标身份已有授权
var ErrAlreadyAuthorized = errors.New("identity already authorized")

// AuthStore 授权相关的存储操作
type AuthStore interface {
	GetAuthorization(ctx context.Context, identityID int64) (*models.AuthorizedUser, error)
	CreateAuthorization(ctx context.Context, entry *models.AuthorizedUser) error
	DeleteAuthorization(ctx context.Context, identityID int64) error
	ListAuthorizations(ctx context.Context) ([]models.AuthorizedUser, error)
	BootstrapAdmin(ctx context.Context, entry *models.AuthorizedUser) (bool, error)
}

// AuthGate 授权门：把身份解析为 未授权/成员/管理员
type AuthGate struct {
	store       AuthStore
	bootstrapID int64
}

// NewAuthGate 创建授权门，bootstrapID 为 0 表示不启用引导管理员
func NewAuthGate(store AuthStore, bootstrapID int64) *AuthGate {
	return &AuthGate{store: store, bootstrapID: bootstrapID}
}

// BootstrapID 引导管理员身份
func (g *AuthGate) BootstrapID() int64 {
	return g.bootstrapID
}

// EnsureBootstrapAdmin 启动时调用一次：尚无管理员时把引导身份设为管理员，可重复调用
func (g *AuthGate) EnsureBootstrapAdmin(ctx context.Context) (bool, error) {
	if g.bootstrapID == 0 {
		return false, nil
	}
	return g.store.BootstrapAdmin(ctx, &models.AuthorizedUser{
		IdentityID: g.bootstrapID,
		AddedBy:    g.bootstrapID,
	})
}

// Resolve 解析身份角色
// 无授权记录时，仅当它是引导身份且全库没有管理员，才自动创建管理员
func (g *AuthGate) Resolve(ctx context.Context, identityID int64) (Role, error) {
	entry, err := g.store.GetAuthorization(ctx, identityID)
	if err == nil {
		return roleOf(entry), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return RoleUnauthorized, err
	}
	if g.bootstrapID == 0 || identityID != g.bootstrapID {
		return RoleUnauthorized, nil
	}

	created, err := g.EnsureBootstrapAdmin(ctx)
	if err != nil {
		return RoleUnauthorized, err
	}
	if created {
		return RoleAdmin, nil
	}

	// 已有管理员或并发请求先写入了，以库中记录为准
	entry, err = g.store.GetAuthorization(ctx, identityID)
	if errors.Is(err, database.ErrNotFound) {
		return RoleUnauthorized, nil
	}
	if err != nil {
		return RoleUnauthorized, err
	}
	return roleOf(entry), nil
}

func roleOf(entry *models.AuthorizedUser) Role {
	if entry.IsAdmin {
		return RoleAdmin
	}
	return RoleMember
}

// AddUser 授权新的成员
func (g *AuthGate) AddUser(ctx context.Context, actorID, identityID int64) (*models.AuthorizedUser, error) {
	_, err := g.store.GetAuthorization(ctx, identityID)
	if err == nil {
		return nil, ErrAlreadyAuthorized
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	entry := &models.AuthorizedUser{IdentityID: identityID, AddedBy: actorID}
	if err := g.store.CreateAuthorization(ctx, entry); err != nil {
		if database.IsConstraintViolation(err) {
			return nil, ErrAlreadyAuthorized
		}
		return nil, err
	}
	return entry, nil
}

// RemoveUser 移除授权；允许移除最后一个管理员，由运维自行避免把自己锁在门外
func (g *AuthGate) RemoveUser(ctx context.Context, identityID int64) error {
	return g.store.DeleteAuthorization(ctx, identityID)
}

// ListUsers 列出所有授权
func (g *AuthGate) ListUsers(ctx context.Context) ([]models.AuthorizedUser, error) {
	return g.store.ListAuthorizations(ctx)
}
