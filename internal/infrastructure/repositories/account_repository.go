package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/you/identitysvc/domain"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account (with GORM tags)
type DBAccount struct {
	ID                  uint   `gorm:"primaryKey"`
	Identifier          string `gorm:"uniqueIndex;size:255;not null"`
	Email               string `gorm:"index;size:255"`
	Phone               string `gorm:"index;size:32"`
	PasswordHash        string `gorm:"column:password;not null"`
	DisplayName         string `gorm:"size:255"`
	Status              string `gorm:"index;size:32;not null"`
	EmailVerified       bool
	PhoneVerified       bool
	FailedAttempts      int `gorm:"not null;default:0"`
	LockoutUntil        *time.Time
	ResetTokenHash      string `gorm:"index;size:64"`
	ResetTokenExpiresAt *time.Time
	BiometricHash       string `gorm:"index;size:64"`
	LastLoginAt         *time.Time
	CreatedAt           time.Time `gorm:"index"`
	UpdatedAt           time.Time
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	dbAccount := r.domainToDB(account)
	if err := r.db.WithContext(ctx).Create(dbAccount).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdentifierTaken
		}
		return err
	}
	account.ID = dbAccount.ID
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByIdentifier implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByIdentifier(ctx context.Context, identifier string) (*domain.Account, error) {
	return r.findOne(ctx, "identifier = ?", identifier)
}

// FindByID implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.Account, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByResetTokenHash implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	if tokenHash == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, "reset_token_hash = ?", tokenHash)
}

// FindByBiometricHash implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByBiometricHash(ctx context.Context, biometricHash string) (*domain.Account, error) {
	if biometricHash == "" {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, "biometric_hash = ?", biometricHash)
}

func (r *AccountRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.db.WithContext(ctx).Where(query, arg).First(&dbAccount).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbAccount), nil
}

// Update implements domain.AccountRepository
func (r *AccountRepositoryImpl) Update(ctx context.Context, id uint, update domain.AccountUpdate) error {
	fields := updateFields(update)
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&DBAccount{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// Delete implements domain.AccountRepository
func (r *AccountRepositoryImpl) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&DBAccount{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// RecordFailedLogin implements domain.AccountRepository. The counter and the
// lockout deadline are computed by the database in a single UPDATE so
// concurrent failures are never under-counted. A lockout that elapsed before
// now restarts the count at one; one still in force is never shortened.
func (r *AccountRepositoryImpl) RecordFailedLogin(ctx context.Context, id uint, threshold int, now time.Time, lockout time.Duration) (*domain.Account, error) {
	now = now.UTC()
	until := now.Add(lockout)
	const next = "CASE WHEN lockout_until IS NOT NULL AND lockout_until <= ? THEN 1 ELSE failed_attempts + 1 END"

	res := r.db.WithContext(ctx).Model(&DBAccount{}).Where("id = ?", id).Updates(map[string]interface{}{
		"failed_attempts": gorm.Expr(next, now),
		"lockout_until": gorm.Expr(
			"CASE WHEN lockout_until > ? THEN lockout_until WHEN "+next+" >= ? THEN ? ELSE NULL END",
			now, now, threshold, until,
		),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, domain.ErrAccountNotFound
	}
	return r.FindByID(ctx, id)
}

// CompletePasswordReset implements domain.AccountRepository
func (r *AccountRepositoryImpl) CompletePasswordReset(ctx context.Context, id uint, tokenHash, passwordHash string) error {
	if tokenHash == "" {
		return domain.ErrResetTokenInvalid
	}
	res := r.db.WithContext(ctx).Model(&DBAccount{}).
		Where("id = ? AND reset_token_hash = ?", id, tokenHash).
		Updates(map[string]interface{}{
			"password":               passwordHash,
			"reset_token_hash":       "",
			"reset_token_expires_at": nil,
			"failed_attempts":        0,
			"lockout_until":          nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrResetTokenInvalid
	}
	return nil
}

// updateFields maps the set fields of an AccountUpdate to column values
func updateFields(u domain.AccountUpdate) map[string]interface{} {
	fields := map[string]interface{}{}
	if u.PasswordHash != nil {
		fields["password"] = *u.PasswordHash
	}
	if u.DisplayName != nil {
		fields["display_name"] = *u.DisplayName
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.EmailVerified != nil {
		fields["email_verified"] = *u.EmailVerified
	}
	if u.PhoneVerified != nil {
		fields["phone_verified"] = *u.PhoneVerified
	}
	if u.FailedAttempts != nil {
		fields["failed_attempts"] = *u.FailedAttempts
	}
	if u.ClearLockout {
		fields["lockout_until"] = nil
	} else if u.LockoutUntil != nil {
		fields["lockout_until"] = *u.LockoutUntil
	}
	if u.ClearResetToken {
		fields["reset_token_hash"] = ""
		fields["reset_token_expires_at"] = nil
	} else {
		if u.ResetTokenHash != nil {
			fields["reset_token_hash"] = *u.ResetTokenHash
		}
		if u.ResetTokenExpiry != nil {
			fields["reset_token_expires_at"] = *u.ResetTokenExpiry
		}
	}
	if u.BiometricHash != nil {
		fields["biometric_hash"] = *u.BiometricHash
	}
	if u.LastLoginAt != nil {
		fields["last_login_at"] = *u.LastLoginAt
	}
	return fields
}

// isUniqueViolation reports duplicate-key failures from postgres and sqlite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// domainToDB converts domain account to database account
func (r *AccountRepositoryImpl) domainToDB(a *domain.Account) *DBAccount {
	return &DBAccount{
		ID:                  a.ID,
		Identifier:          a.Identifier,
		Email:               a.Email,
		Phone:               a.Phone,
		PasswordHash:        a.PasswordHash,
		DisplayName:         a.DisplayName,
		Status:              string(a.Status),
		EmailVerified:       a.EmailVerified,
		PhoneVerified:       a.PhoneVerified,
		FailedAttempts:      a.FailedAttempts,
		LockoutUntil:        a.LockoutUntil,
		ResetTokenHash:      a.ResetTokenHash,
		ResetTokenExpiresAt: a.ResetTokenExpiresAt,
		BiometricHash:       a.BiometricHash,
		LastLoginAt:         a.LastLoginAt,
	}
}

// dbToDomain converts database account to domain account
func (r *AccountRepositoryImpl) dbToDomain(a *DBAccount) *domain.Account {
	return &domain.Account{
		ID:                  a.ID,
		Identifier:          a.Identifier,
		Email:               a.Email,
		Phone:               a.Phone,
		PasswordHash:        a.PasswordHash,
		DisplayName:         a.DisplayName,
		Status:              domain.AccountStatus(a.Status),
		EmailVerified:       a.EmailVerified,
		PhoneVerified:       a.PhoneVerified,
		FailedAttempts:      a.FailedAttempts,
		LockoutUntil:        a.LockoutUntil,
		ResetTokenHash:      a.ResetTokenHash,
		ResetTokenExpiresAt: a.ResetTokenExpiresAt,
		BiometricHash:       a.BiometricHash,
		LastLoginAt:         a.LastLoginAt,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}
