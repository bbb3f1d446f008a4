package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"questrail.io/questrail/pkg/common"
	"questrail.io/questrail/pkg/errors"
)

const (
	callbackRefPrefix = "cbref:"
	callbackRefTTL    = 48 * time.Hour
)

// NewCallbackRef stores a composite callback payload behind a short
// random handle. Telegram caps callback data at 64 bytes, so payloads
// carrying more than one UUID cannot be inlined; an explicit index
// avoids the ambiguous prefix lookups it would otherwise tempt.
func NewCallbackRef(ctx context.Context, payload string) (string, error) {
	ref := common.NewRandWordString(16)
	err := Redis.Set(ctx, callbackRefPrefix+ref, payload, callbackRefTTL).Err()
	if err != nil {
		return "", errors.WrapAndReport(err, "store callback ref")
	}
	return ref, nil
}

// CallbackRefs adapts the ref functions to the chat engine interface.
type CallbackRefs struct{}

func (CallbackRefs) NewRef(ctx context.Context, payload string) (string, error) {
	return NewCallbackRef(ctx, payload)
}

func (CallbackRefs) Resolve(ctx context.Context, ref string) (string, error) {
	return ResolveCallbackRef(ctx, ref)
}

// ResolveCallbackRef returns the stored payload, or empty when the ref
// is unknown or expired.
func ResolveCallbackRef(ctx context.Context, ref string) (string, error) {
	payload, err := Redis.Get(ctx, callbackRefPrefix+ref).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.WrapAndReport(err, "resolve callback ref")
	}
	return payload, nil
}
