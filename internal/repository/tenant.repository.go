package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
	"github.com/lodgio/whatsapp-gateway/pkg/pg"
	"gorm.io/gorm"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantExists   = errors.New("tenant already exists")
)

type TenantRepository struct {
	*pg.DB
}

func NewTenantRepository(db *pg.DB) *TenantRepository {
	return &TenantRepository{
		db,
	}
}

func (r *TenantRepository) Create(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error) {
	entity := toTenantEntity(tenant)
	if entity.ID == uuid.Nil {
		entity.ID = uuid.New()
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrTenantExists
		}
		return nil, err
	}

	return toTenantModel(entity), nil
}

func (r *TenantRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID) (*model.Tenant, error) {
	return r.getBy(ctx, "tenant_id = ?", tenantID)
}

func (r *TenantRepository) GetByWabaID(ctx context.Context, wabaID string) (*model.Tenant, error) {
	return r.getBy(ctx, "waba_id = ?", wabaID)
}

func (r *TenantRepository) GetByPhoneNumberID(ctx context.Context, phoneNumberID string) (*model.Tenant, error) {
	return r.getBy(ctx, "phone_number_id = ?", phoneNumberID)
}

func (r *TenantRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*model.Tenant, error) {
	return r.getBy(ctx, "phone_number = ?", phoneNumber)
}

func (r *TenantRepository) getBy(ctx context.Context, query string, arg interface{}) (*model.Tenant, error) {
	var entity TenantEntity
	err := r.Read(ctx).WithContext(ctx).
		Where(query, arg).
		First(&entity).
		Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	return toTenantModel(&entity), nil
}

func (r *TenantRepository) Exists(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TenantEntity{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Update persists the full tenant row, including cleared credential columns.
func (r *TenantRepository) Update(ctx context.Context, tenant *model.Tenant) (*model.Tenant, error) {
	entity := toTenantEntity(tenant)

	result := r.Write(ctx).WithContext(ctx).
		Model(&TenantEntity{}).
		Where("id = ?", entity.ID).
		Select("business_name", "waba_id", "phone_number_id", "phone_number",
			"access_token", "refresh_token", "token_expires_at",
			"connection_status", "webhook_secret").
		Updates(entity)

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTenantNotFound
	}

	return r.getBy(ctx, "id = ?", entity.ID)
}

func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*model.Tenant, int64, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TenantEntity{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var entities []*TenantEntity
	if err := q.Order("created_at ASC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	tenants := make([]*model.Tenant, len(entities))
	for i, e := range entities {
		tenants[i] = toTenantModel(e)
	}
	return tenants, total, nil
}
