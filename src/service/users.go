package service

import (
	"context"
	"strings"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type UserInput struct {
	Handle      string         `json:"handle" binding:"required,min=3,max=64"`
	Email       *string        `json:"email" binding:"omitempty,email"`
	DisplayName string         `json:"display_name" binding:"max=128"`
	Role        model.UserRole `json:"role" binding:"omitempty,oneof=client freelancer"`
	Bio         string         `json:"bio"`
	AvatarUrl   string         `json:"avatar_url"`
}

// Fields a user may change on their own profile, nil means unchanged
type UserUpdate struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=128"`
	Email       *string `json:"email" binding:"omitempty,email"`
	Bio         *string `json:"bio"`
	AvatarUrl   *string `json:"avatar_url"`
}

type UserFilter struct {
	Role model.UserRole `form:"role"`
	Page
}

type Users struct {
	base
}

func NewUsers(config *config.Config, db *gorm.DB) (self *Users) {
	self = new(Users)
	self.base = newBase(config, db, nil, "user")
	return
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*email))
	if v == "" {
		return nil
	}
	return &v
}

func (self *Users) Create(ctx context.Context, in *UserInput) (out *model.User, err error) {
	defer self.wrap(&err)

	out = &model.User{
		Handle:      strings.TrimSpace(in.Handle),
		Email:       normalizeEmail(in.Email),
		DisplayName: in.DisplayName,
		Role:        in.Role,
		Bio:         in.Bio,
		AvatarUrl:   in.AvatarUrl,
	}
	if out.DisplayName == "" {
		out.DisplayName = out.Handle
	}

	err = self.db.WithContext(ctx).Create(out).Error
	if err != nil {
		if model.IsUniqueViolation(err) {
			return nil, apperr.AlreadyExists("user")
		}
		return nil, err
	}
	return
}

func (self *Users) Get(ctx context.Context, id string) (out *model.User, err error) {
	defer self.wrap(&err)
	return first[model.User](ctx, self.db, "user", id)
}

func (self *Users) GetByHandle(ctx context.Context, handle string) (out *model.User, err error) {
	defer self.wrap(&err)

	out = new(model.User)
	err = self.db.WithContext(ctx).Where("handle = ?", handle).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound("user")
		}
		return nil, err
	}
	return
}

func (self *Users) List(ctx context.Context, filter *UserFilter) (out []*model.User, err error) {
	defer self.wrap(&err)

	query := self.db.WithContext(ctx)
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	err = filter.Page.apply(query).Order("created_at DESC").Find(&out).Error
	return
}

func (self *Users) Update(ctx context.Context, id string, in *UserUpdate) (out *model.User, err error) {
	defer self.wrap(&err)

	out, err = first[model.User](ctx, self.db, "user", id)
	if err != nil {
		return
	}

	if in.DisplayName != nil {
		out.DisplayName = *in.DisplayName
	}
	if in.Email != nil {
		out.Email = normalizeEmail(in.Email)
	}
	if in.Bio != nil {
		out.Bio = *in.Bio
	}
	if in.AvatarUrl != nil {
		out.AvatarUrl = *in.AvatarUrl
	}

	err = self.db.WithContext(ctx).Save(out).Error
	if err != nil {
		if model.IsUniqueViolation(err) {
			return nil, apperr.AlreadyExists("user")
		}
		return nil, err
	}
	return
}

func (self *Users) SetRole(ctx context.Context, id string, role model.UserRole) (out *model.User, err error) {
	defer self.wrap(&err)

	out, err = first[model.User](ctx, self.db, "user", id)
	if err != nil {
		return
	}
	if out.Role == role {
		return
	}

	err = self.db.WithContext(ctx).Model(out).Update("role", role).Error
	if err != nil {
		return nil, err
	}
	out.Role = role
	return
}
