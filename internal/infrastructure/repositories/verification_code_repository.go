package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/identitysvc/domain"
)

const (
	fieldAccountID   = "account_id"
	fieldDestination = "destination"
	fieldCodeHash    = "code_hash"
	fieldChannel     = "channel"
	fieldPurpose     = "purpose"
	fieldExpiresAt   = "expires_at"
	fieldAttempts    = "attempts"
	fieldMaxAttempts = "max_attempts"
	fieldUsedAt      = "used_at"
	fieldCreatedAt   = "created_at"
)

// DefaultCodeRetention is how long a code record outlives its expiry
const DefaultCodeRetention = 24 * time.Hour

// incrementAttemptsScript bumps the attempt counter of an existing record only
var incrementAttemptsScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
`)

// markUsedScript sets used_at once; later callers observe 0
var markUsedScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
return redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2])
`)

// VerificationCodeRepositoryImpl implements domain.VerificationCodeRepository
// using one Redis hash per code record
type VerificationCodeRepositoryImpl struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewVerificationCodeRepository creates a new OTP ledger. Records are kept
// for retention past their expiry so used and expired codes stay distinguishable
// from unknown ones.
func NewVerificationCodeRepository(client *redis.Client, retention time.Duration) domain.VerificationCodeRepository {
	if retention <= 0 {
		retention = DefaultCodeRetention
	}
	return &VerificationCodeRepositoryImpl{
		client:    client,
		prefix:    "otp:code:",
		retention: retention,
	}
}

func (r *VerificationCodeRepositoryImpl) key(id string) string {
	return r.prefix + id
}

// Create implements domain.VerificationCodeRepository
func (r *VerificationCodeRepositoryImpl) Create(ctx context.Context, code *domain.VerificationCode) error {
	key := r.key(code.ID)
	values := map[string]interface{}{
		fieldAccountID:   strconv.FormatUint(uint64(code.AccountID), 10),
		fieldDestination: code.Destination,
		fieldCodeHash:    code.CodeHash,
		fieldChannel:     string(code.Channel),
		fieldPurpose:     string(code.Purpose),
		fieldExpiresAt:   code.ExpiresAt.UTC().Format(time.RFC3339Nano),
		fieldAttempts:    code.Attempts,
		fieldMaxAttempts: code.MaxAttempts,
		fieldCreatedAt:   code.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if code.Used && code.UsedAt != nil {
		values[fieldUsedAt] = code.UsedAt.UTC().Format(time.RFC3339Nano)
	}

	lifetime := code.ExpiresAt.Sub(code.CreatedAt)
	if code.CreatedAt.IsZero() {
		lifetime = time.Until(code.ExpiresAt)
	}
	if lifetime < 0 {
		lifetime = 0
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, values)
		pipe.Expire(ctx, key, lifetime+r.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}
	return nil
}

// FindByID implements domain.VerificationCodeRepository
func (r *VerificationCodeRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.VerificationCode, error) {
	if id == "" {
		return nil, domain.ErrOTPNotFound
	}
	data, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrOTPNotFound
	}
	return decodeVerificationCode(id, data)
}

// Update implements domain.VerificationCodeRepository
func (r *VerificationCodeRepositoryImpl) Update(ctx context.Context, id string, update domain.VerificationCodeUpdate) error {
	key := r.key(id)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return domain.ErrOTPNotFound
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if update.Attempts != nil {
			pipe.HSet(ctx, key, fieldAttempts, *update.Attempts)
		}
		if update.Used != nil {
			if *update.Used {
				usedAt := time.Now().UTC()
				if update.UsedAt != nil {
					usedAt = update.UsedAt.UTC()
				}
				pipe.HSet(ctx, key, fieldUsedAt, usedAt.Format(time.RFC3339Nano))
			} else {
				pipe.HDel(ctx, key, fieldUsedAt)
			}
		}
		return nil
	})
	return err
}

// IncrementAttempts implements domain.VerificationCodeRepository
func (r *VerificationCodeRepositoryImpl) IncrementAttempts(ctx context.Context, id string) (int, error) {
	n, err := incrementAttemptsScript.Run(ctx, r.client, []string{r.key(id)}, fieldAttempts).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, domain.ErrOTPNotFound
	}
	return n, nil
}

// MarkUsed implements domain.VerificationCodeRepository
func (r *VerificationCodeRepositoryImpl) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	n, err := markUsedScript.Run(ctx, r.client, []string{r.key(id)},
		fieldUsedAt, usedAt.UTC().Format(time.RFC3339Nano)).Int()
	if err != nil {
		return false, err
	}
	if n < 0 {
		return false, domain.ErrOTPNotFound
	}
	return n == 1, nil
}

func decodeVerificationCode(id string, data map[string]string) (*domain.VerificationCode, error) {
	accountID, err := strconv.ParseUint(data[fieldAccountID], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt verification code %s: account id: %w", id, err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, data[fieldExpiresAt])
	if err != nil {
		return nil, fmt.Errorf("corrupt verification code %s: expiry: %w", id, err)
	}
	attempts, _ := strconv.Atoi(data[fieldAttempts])
	maxAttempts, _ := strconv.Atoi(data[fieldMaxAttempts])
	createdAt, _ := time.Parse(time.RFC3339Nano, data[fieldCreatedAt])

	code := &domain.VerificationCode{
		ID:          id,
		AccountID:   uint(accountID),
		Destination: data[fieldDestination],
		CodeHash:    data[fieldCodeHash],
		Channel:     domain.Channel(data[fieldChannel]),
		Purpose:     domain.Purpose(data[fieldPurpose]),
		ExpiresAt:   expiresAt,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
		CreatedAt:   createdAt,
	}
	if raw, ok := data[fieldUsedAt]; ok && raw != "" {
		usedAt, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt verification code %s: used at: %w", id, err)
		}
		code.Used = true
		code.UsedAt = &usedAt
	}
	return code, nil
}
