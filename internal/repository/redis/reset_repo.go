package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultResetCodeTTL = 5 * time.Minute
	resetCodePrefix     = "password:reset"

	pendingSuffix   = "pending"
	confirmedSuffix = "confirmed"
)

var (
	ErrCodeNotFound        = errors.New("reset code not found")
	ErrCodeDeleteFailed    = errors.New("reset code delete failed")
	ErrCodePendingFailed   = errors.New("reset code pending failed")
	ErrCodeConfirmedFailed = errors.New("reset code confirm failed")
)

// ResetCodeRepository stores password-reset codes in two phases: pending
// from the moment the code is emailed, confirmed once the user echoes it
// back correctly. The password change itself consumes the confirmed key.
type ResetCodeRepository struct{}

func (e *ResetCodeRepository) PutPending(email, code string) error {
	key := fmt.Sprintf("%s:%s:%s", resetCodePrefix, pendingSuffix, email)
	if err := Client.Set(context.Background(), key, code, DefaultResetCodeTTL).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

func (e *ResetCodeRepository) GetPending(email string) (string, error) {
	key := fmt.Sprintf("%s:%s:%s", resetCodePrefix, pendingSuffix, email)
	val, err := Client.Get(context.Background(), key).Result()
	if err != nil {
		return "", ErrCodeNotFound
	}
	return val, nil
}

// Confirm atomically moves the pending code to confirmed with a fresh TTL.
func (e *ResetCodeRepository) Confirm(email string) error {
	srcKey := fmt.Sprintf("%s:%s:%s", resetCodePrefix, pendingSuffix, email)
	dstKey := fmt.Sprintf("%s:%s:%s", resetCodePrefix, confirmedSuffix, email)

	script := `
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`
	px := int64(DefaultResetCodeTTL / time.Millisecond)
	res := Client.Eval(context.Background(), script, []string{srcKey, dstKey}, px)
	if err := res.Err(); err != nil {
		return ErrCodeConfirmedFailed
	}
	ok, _ := res.Int()
	if ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

func (e *ResetCodeRepository) DeletePending(email string) error {
	key := fmt.Sprintf("%s:%s:%s", resetCodePrefix, pendingSuffix, email)
	if err := Client.Del(context.Background(), key).Err(); err != nil {
		return ErrCodeDeleteFailed
	}
	return nil
}

func (e *ResetCodeRepository) GetConfirmed(email string) (string, error) {
	key := fmt.Sprintf("%s:%s:%s", resetCodePrefix, confirmedSuffix, email)
	val, err := Client.Get(context.Background(), key).Result()
	if err != nil {
		return "", ErrCodeNotFound
	}
	return val, nil
}

func (e *ResetCodeRepository) DeleteConfirmed(email string) error {
	key := fmt.Sprintf("%s:%s:%s", resetCodePrefix, confirmedSuffix, email)
	if err := Client.Del(context.Background(), key).Err(); err != nil {
		return ErrCodeDeleteFailed
	}
	return nil
}
