package service

import (
	"context"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type GigInput struct {
	FreelancerID  string   `json:"freelancer_id" binding:"required"`
	Title         string   `json:"title" binding:"required,max=200"`
	DescriptionMd string   `json:"description_md"`
	Price         string   `json:"price" binding:"required,numeric"`
	DeliveryDays  int      `json:"delivery_days" binding:"omitempty,gte=1,lte=365"`
	Tags          []string `json:"tags"`
}

type GigUpdate struct {
	Title         *string          `json:"title" binding:"omitempty,max=200"`
	DescriptionMd *string          `json:"description_md"`
	Price         *string          `json:"price" binding:"omitempty,numeric"`
	DeliveryDays  *int             `json:"delivery_days" binding:"omitempty,gte=1,lte=365"`
	Tags          []string         `json:"tags"`
	Status        *model.GigStatus `json:"status" binding:"omitempty,oneof=active paused archived"`
}

type GigFilter struct {
	FreelancerID string          `form:"freelancer_id"`
	Tag          string          `form:"tag"`
	Status       model.GigStatus `form:"status"`
	Page
}

type Gigs struct {
	base
}

func NewGigs(config *config.Config, db *gorm.DB) (self *Gigs) {
	self = new(Gigs)
	self.base = newBase(config, db, nil, "gig")
	return
}

func (self *Gigs) Create(ctx context.Context, in *GigInput) (out *model.Gig, err error) {
	defer self.wrap(&err)

	err = exists[model.User](ctx, self.db, "user", in.FreelancerID)
	if err != nil {
		return
	}

	out = &model.Gig{
		FreelancerID:  in.FreelancerID,
		Title:         in.Title,
		DescriptionMd: in.DescriptionMd,
		Price:         in.Price,
		DeliveryDays:  in.DeliveryDays,
		Tags:          model.StringArray(in.Tags),
	}
	if out.DeliveryDays == 0 {
		out.DeliveryDays = 1
	}

	err = self.db.WithContext(ctx).Create(out).Error
	if err != nil {
		return nil, err
	}
	return
}

func (self *Gigs) Get(ctx context.Context, id string) (out *model.Gig, err error) {
	defer self.wrap(&err)
	return first[model.Gig](ctx, self.db, "gig", id)
}

func (self *Gigs) List(ctx context.Context, filter *GigFilter) (out []*model.Gig, err error) {
	defer self.wrap(&err)

	query := self.db.WithContext(ctx)
	if filter.FreelancerID != "" {
		query = query.Where("freelancer_id = ?", filter.FreelancerID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Tag != "" {
		query = query.Where(model.ArrayContains("tags", filter.Tag))
	}
	err = filter.Page.apply(query).Order("created_at DESC").Find(&out).Error
	return
}

func (self *Gigs) Update(ctx context.Context, id string, in *GigUpdate) (out *model.Gig, err error) {
	defer self.wrap(&err)

	out, err = first[model.Gig](ctx, self.db, "gig", id)
	if err != nil {
		return
	}
	if out.Status == model.GigStatusArchived && (in.Status == nil || *in.Status == model.GigStatusArchived) {
		return nil, notEditable("gig", string(out.Status))
	}

	if in.Title != nil {
		out.Title = *in.Title
	}
	if in.DescriptionMd != nil {
		out.DescriptionMd = *in.DescriptionMd
	}
	if in.Price != nil {
		out.Price = *in.Price
	}
	if in.DeliveryDays != nil {
		out.DeliveryDays = *in.DeliveryDays
	}
	if in.Tags != nil {
		out.Tags = model.StringArray(in.Tags)
	}
	if in.Status != nil {
		out.Status = *in.Status
	}

	err = self.db.WithContext(ctx).Save(out).Error
	if err != nil {
		return nil, err
	}
	return
}

func (self *Gigs) Delete(ctx context.Context, id string) (err error) {
	defer self.wrap(&err)

	res := self.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Gig{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("gig")
	}
	return nil
}
