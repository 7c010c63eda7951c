package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/brandlens/internal/api/middleware"
	"github.com/kiranshivaraju/brandlens/internal/api/response"
	"github.com/kiranshivaraju/brandlens/internal/store"
	"github.com/kiranshivaraju/brandlens/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

const rawKeyPrefix = "bl_"

var defaultKeyScopes = []string{mw.ScopeDetect, mw.ScopeRead}

var validScopes = map[string]bool{
	mw.ScopeDetect: true,
	mw.ScopeRead:   true,
	mw.ScopeAdmin:  true,
}

// KeyStore manages API keys.
type KeyStore interface {
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, userID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

// GenerateKey returns a new random raw API key.
func GenerateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return rawKeyPrefix + hex.EncodeToString(buf), nil
}

// NewAPIKey hashes rawKey and builds the record to persist.
func NewAPIKey(rawKey, name string, userID uuid.UUID, scopes []string) (*models.APIKey, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		KeyHash:   string(hash),
		KeyPrefix: rawKey[:mw.KeyPrefixLen],
		Scopes:    scopes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// keyOwner resolves the optional user_id override; it defaults to the caller.
func keyOwner(r *http.Request, raw string) (uuid.UUID, error) {
	if raw == "" {
		id, ok := mw.GetUserID(r)
		if !ok {
			return uuid.Nil, errors.New("missing user")
		}
		return id, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("user_id must be a valid UUID")
	}
	return id, nil
}

// NewCreateKeyHandler returns an http.HandlerFunc for POST /api/v1/admin/keys.
// The raw key appears only in this response.
func NewCreateKeyHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name   string   `json:"name"`
			UserID string   `json:"user_id"`
			Scopes []string `json:"scopes"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			badRequest(w, "name is required")
			return
		}
		owner, err := keyOwner(r, req.UserID)
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		scopes := req.Scopes
		if len(scopes) == 0 {
			scopes = defaultKeyScopes
		}
		for _, s := range scopes {
			if !validScopes[s] {
				badRequest(w, "scopes must be drawn from detect, read, admin")
				return
			}
		}

		rawKey, err := GenerateKey()
		if err != nil {
			internalError(w, r, "Failed to generate API key", err)
			return
		}
		key, err := NewAPIKey(rawKey, req.Name, owner, scopes)
		if err != nil {
			internalError(w, r, "Failed to hash API key", err)
			return
		}
		if err := keys.CreateAPIKey(r.Context(), key); err != nil {
			internalError(w, r, "Failed to create API key", err)
			return
		}

		response.Created(w, map[string]any{
			"id":         key.ID,
			"user_id":    key.UserID,
			"name":       key.Name,
			"key":        rawKey,
			"key_prefix": key.KeyPrefix,
			"scopes":     key.Scopes,
			"created_at": key.CreatedAt,
		})
	}
}

// NewListKeysHandler returns an http.HandlerFunc for GET /api/v1/admin/keys?user_id=.
func NewListKeysHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner, err := keyOwner(r, r.URL.Query().Get("user_id"))
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		list, err := keys.ListAPIKeys(r.Context(), owner)
		if err != nil {
			internalError(w, r, "Failed to list API keys", err)
			return
		}
		if list == nil {
			list = []*models.APIKey{}
		}

		response.JSON(w, list)
	}
}

// NewRevokeKeyHandler returns an http.HandlerFunc for DELETE /api/v1/admin/keys/{keyID}?user_id=.
func NewRevokeKeyHandler(keys KeyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlUUID(r, "keyID")
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		owner, err := keyOwner(r, r.URL.Query().Get("user_id"))
		if err != nil {
			badRequest(w, err.Error())
			return
		}

		err = keys.RevokeAPIKey(r.Context(), id, owner)
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "API key not found")
			return
		}
		if err != nil {
			internalError(w, r, "Failed to revoke API key", err)
			return
		}

		response.NoContent(w)
	}
}
