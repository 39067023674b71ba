package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/lodgio/whatsapp-gateway/internal/model"
)

type TenantEntity struct {
	ID            uuid.UUID  `db:"id"              gorm:"primaryKey;column:id"`
	TenantID      uuid.UUID  `db:"tenant_id"       gorm:"column:tenant_id;not null;uniqueIndex"`
	BusinessName  string     `db:"business_name"   gorm:"column:business_name;not null"`
	WabaID        string     `db:"waba_id"         gorm:"column:waba_id;index:idx_tenants_waba_id,unique,where:waba_id <> ''"`
	PhoneNumberID string     `db:"phone_number_id" gorm:"column:phone_number_id;index"`
	PhoneNumber   string     `db:"phone_number"    gorm:"column:phone_number;index:idx_tenants_phone_number,unique,where:phone_number <> ''"`
	AccessToken   string     `db:"access_token"    gorm:"column:access_token"`
	RefreshToken  string     `db:"refresh_token"   gorm:"column:refresh_token"`
	TokenExpires  *time.Time `db:"token_expires_at" gorm:"column:token_expires_at"`
	Status        string     `db:"connection_status" gorm:"column:connection_status;not null"`
	WebhookSecret string     `db:"webhook_secret"  gorm:"column:webhook_secret"`
	CreatedAt     time.Time  `db:"created_at"      gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `db:"updated_at"      gorm:"column:updated_at;autoUpdateTime"`
}

func (TenantEntity) TableName() string {
	return "tenants"
}

func toTenantEntity(t *model.Tenant) *TenantEntity {
	if t == nil {
		return nil
	}
	return &TenantEntity{
		ID:            t.ID,
		TenantID:      t.TenantID,
		BusinessName:  t.BusinessName,
		WabaID:        t.WabaID,
		PhoneNumberID: t.PhoneNumberID,
		PhoneNumber:   t.PhoneNumber,
		AccessToken:   t.AccessToken,
		RefreshToken:  t.RefreshToken,
		TokenExpires:  t.TokenExpires,
		Status:        string(t.Status),
		WebhookSecret: t.WebhookSecret,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func toTenantModel(e *TenantEntity) *model.Tenant {
	if e == nil {
		return nil
	}
	return &model.Tenant{
		ID:            e.ID,
		TenantID:      e.TenantID,
		BusinessName:  e.BusinessName,
		WabaID:        e.WabaID,
		PhoneNumberID: e.PhoneNumberID,
		PhoneNumber:   e.PhoneNumber,
		AccessToken:   e.AccessToken,
		RefreshToken:  e.RefreshToken,
		TokenExpires:  e.TokenExpires,
		Status:        model.ConnectionStatus(e.Status),
		WebhookSecret: e.WebhookSecret,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
