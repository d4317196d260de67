package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/you/identitysvc/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using GORM
type SessionRepositoryImpl struct {
	db *gorm.DB
}

// DBSession represents the database model for Session. Only credential
// digests are stored, never the bearer strings themselves.
type DBSession struct {
	ID               string    `gorm:"primaryKey;size:26"`
	AccountID        uint      `gorm:"index;not null"`
	AccessTokenHash  string    `gorm:"index;size:64;not null"`
	RefreshTokenHash string    `gorm:"uniqueIndex;size:64;not null"`
	DeviceID         string    `gorm:"size:128"`
	Platform         string    `gorm:"size:64"`
	UserAgent        string    `gorm:"size:512"`
	IPAddress        string    `gorm:"size:64"`
	IsActive         bool      `gorm:"index"`
	ExpiresAt        time.Time `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName returns the table name for GORM
func (DBSession) TableName() string {
	return "sessions"
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *gorm.DB) domain.SessionRepository {
	return &SessionRepositoryImpl{db: db}
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	dbSession := sessionToDB(session)
	if err := r.db.WithContext(ctx).Create(dbSession).Error; err != nil {
		return err
	}
	session.CreatedAt = dbSession.CreatedAt
	session.UpdatedAt = dbSession.UpdatedAt
	return nil
}

// FindByAccessCredential implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByAccessCredential(ctx context.Context, accessTokenHash string) (*domain.Session, error) {
	return r.findOne(ctx, "access_token_hash = ?", accessTokenHash)
}

// FindByRefreshCredential implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByRefreshCredential(ctx context.Context, refreshTokenHash string) (*domain.Session, error) {
	return r.findOne(ctx, "refresh_token_hash = ?", refreshTokenHash)
}

func (r *SessionRepositoryImpl) findOne(ctx context.Context, query string, arg string) (*domain.Session, error) {
	if arg == "" {
		return nil, domain.ErrSessionNotFound
	}
	var dbSession DBSession
	err := r.db.WithContext(ctx).Where(query, arg).Order("created_at DESC").First(&dbSession).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return sessionToDomain(&dbSession), nil
}

// UpdateManyByCredential implements domain.SessionRepository
func (r *SessionRepositoryImpl) UpdateManyByCredential(ctx context.Context, accessTokenHash string, update domain.SessionUpdate) (int64, error) {
	fields := sessionUpdateFields(update)
	if len(fields) == 0 || accessTokenHash == "" {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("access_token_hash = ?", accessTokenHash).
		Updates(fields)
	return res.RowsAffected, res.Error
}

// Update implements domain.SessionRepository
func (r *SessionRepositoryImpl) Update(ctx context.Context, id string, update domain.SessionUpdate) error {
	fields := sessionUpdateFields(update)
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&DBSession{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeactivateByAccount implements domain.SessionRepository
func (r *SessionRepositoryImpl) DeactivateByAccount(ctx context.Context, accountID uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&DBSession{}).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func sessionUpdateFields(u domain.SessionUpdate) map[string]interface{} {
	fields := map[string]interface{}{}
	if u.IsActive != nil {
		fields["is_active"] = *u.IsActive
	}
	if u.AccessTokenHash != nil {
		fields["access_token_hash"] = *u.AccessTokenHash
	}
	return fields
}

func sessionToDB(s *domain.Session) *DBSession {
	return &DBSession{
		ID:               s.ID,
		AccountID:        s.AccountID,
		AccessTokenHash:  s.AccessTokenHash,
		RefreshTokenHash: s.RefreshTokenHash,
		DeviceID:         s.Device.DeviceID,
		Platform:         s.Device.Platform,
		UserAgent:        s.Device.UserAgent,
		IPAddress:        s.Device.IPAddress,
		IsActive:         s.IsActive,
		ExpiresAt:        s.ExpiresAt,
	}
}

func sessionToDomain(s *DBSession) *domain.Session {
	return &domain.Session{
		ID:               s.ID,
		AccountID:        s.AccountID,
		AccessTokenHash:  s.AccessTokenHash,
		RefreshTokenHash: s.RefreshTokenHash,
		Device: domain.DeviceInfo{
			DeviceID:  s.DeviceID,
			Platform:  s.Platform,
			UserAgent: s.UserAgent,
			IPAddress: s.IPAddress,
		},
		IsActive:  s.IsActive,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
