package memory

import (
	"context"

	"github.com/xenking/cloud-kitchen/internal/domain/auth"
)

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository holds a fixed set of keys indexed by hash.
type APIKeyRepository struct {
	byHash map[string]auth.APIKeyInfo
}

// NewAPIKeyRepository indexes keys by their KeyHash.
func NewAPIKeyRepository(keys ...auth.APIKeyInfo) *APIKeyRepository {
	byHash := make(map[string]auth.APIKeyInfo, len(keys))
	for _, k := range keys {
		byHash[k.KeyHash] = k
	}
	return &APIKeyRepository{byHash: byHash}
}

// FindByHash implements auth.Repository.
func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := r.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return &info, nil
}
