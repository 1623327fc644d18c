package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"marketplace/internal/repository"
	"marketplace/internal/roles"
)

// RoleResolver turns an authenticated user ID into the role and capability
// set every order operation is checked against.
type RoleResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (roles.Role, roles.CapabilitySet, error)
}

type roleResolver struct {
	users repository.UserRepository
	perms repository.PermissionRepository
}

func NewRoleResolver(users repository.UserRepository, perms repository.PermissionRepository) RoleResolver {
	return &roleResolver{users: users, perms: perms}
}

func (r *roleResolver) Resolve(ctx context.Context, userID uuid.UUID) (roles.Role, roles.CapabilitySet, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return roles.Role{}, nil, ErrUserNotFound
		}
		return roles.Role{}, nil, err
	}

	profile, err := r.users.GetAdminProfile(ctx, userID)
	if err != nil {
		return roles.Role{}, nil, err
	}
	vendor, err := r.users.GetVendor(ctx, userID)
	if err != nil {
		return roles.Role{}, nil, err
	}
	employments, err := r.users.GetActiveEmployments(ctx, userID)
	if err != nil {
		return roles.Role{}, nil, err
	}

	role := roles.Resolve(user, profile, vendor, employments)

	if role.IsVendorEmployee() {
		perm, err := r.perms.GetByRole(ctx, role.EmployeeRole)
		if err != nil {
			return roles.Role{}, nil, err
		}
		return role, roles.Capabilities(role, perm), nil
	}
	return role, roles.Capabilities(role, nil), nil
}
