package credentials

import "context"

// Keys under which the session is persisted on the device.
const (
	KeyAccessToken  = "userToken"
	KeyRefreshToken = "refreshToken"
	KeyProfile      = "cachedUserData"
)

// Repo is the durable key/value storage behind the credential store.
type Repo interface {
	// Get returns errors.ErrNotFound when the key has never been set or was deleted
	Get(ctx context.Context, key string) (string, error)

	// Set creates or overwrites a key
	Set(ctx context.Context, key, value string) error

	// Delete removes keys, ignoring keys that do not exist
	Delete(ctx context.Context, keys ...string) error
}
