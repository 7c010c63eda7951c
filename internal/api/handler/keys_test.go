package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/brandlens/internal/api/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const keysPath = "/api/v1/admin/keys"

func TestGenerateKey(t *testing.T) {
	a, err := GenerateKey()
	require.NoError(t, err)
	b, err := GenerateKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, rawKeyPrefix))
	assert.Len(t, a, len(rawKeyPrefix)+48)
	assert.NotEqual(t, a, b)
}

func TestCreateKey(t *testing.T) {
	st := newFakeStore()
	admin := uuid.New()

	rec := serve(t, NewCreateKeyHandler(st), http.MethodPost, keysPath, keysPath, map[string]any{
		"name": "ci",
	}, admin)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	data := dataOf(t, rec)
	raw := data["key"].(string)
	assert.Equal(t, raw[:mw.KeyPrefixLen], data["key_prefix"])
	assert.Equal(t, admin.String(), data["user_id"])
	assert.Equal(t, []any{mw.ScopeDetect, mw.ScopeRead}, data["scopes"])

	require.Len(t, st.keys, 1)
	for _, k := range st.keys {
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(raw)))
		assert.NotContains(t, k.KeyHash, raw)
	}
}

func TestCreateKey_ForOtherUser(t *testing.T) {
	st := newFakeStore()
	other := uuid.New()

	rec := serve(t, NewCreateKeyHandler(st), http.MethodPost, keysPath, keysPath, map[string]any{
		"name":    "svc",
		"user_id": other.String(),
		"scopes":  []string{mw.ScopeRead},
	}, uuid.New())

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, other.String(), dataOf(t, rec)["user_id"])
}

func TestCreateKey_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing name", map[string]any{}},
		{"bad user", map[string]any{"name": "x", "user_id": "nope"}},
		{"bad scope", map[string]any{"name": "x", "scopes": []string{"root"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newFakeStore()
			rec := serve(t, NewCreateKeyHandler(st), http.MethodPost, keysPath, keysPath, tt.body, uuid.New())
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, st.keys)
		})
	}
}

func TestListAndRevokeKeys(t *testing.T) {
	st := newFakeStore()
	admin := uuid.New()

	rec := serve(t, NewCreateKeyHandler(st), http.MethodPost, keysPath, keysPath, map[string]any{"name": "one"}, admin)
	require.Equal(t, http.StatusCreated, rec.Code)
	keyID := dataOf(t, rec)["id"].(string)

	rec = serve(t, NewListKeysHandler(st), http.MethodGet, keysPath, keysPath, nil, admin)
	require.Equal(t, http.StatusOK, rec.Code)
	var env struct {
		Data []map[string]any `json:"data"`
	}
	decodeInto(t, rec, &env)
	require.Len(t, env.Data, 1)
	_, hasHash := env.Data[0]["key_hash"]
	assert.False(t, hasHash)

	pattern := keysPath + "/{keyID}"
	rec = serve(t, NewRevokeKeyHandler(st), http.MethodDelete, pattern, keysPath+"/"+keyID, nil, admin)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(t, NewRevokeKeyHandler(st), http.MethodDelete, pattern, keysPath+"/"+keyID, nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, NewListKeysHandler(st), http.MethodGet, keysPath, keysPath, nil, admin)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}
