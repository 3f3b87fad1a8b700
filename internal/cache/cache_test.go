package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	Cities []string `json:"cities"`
	Type   string   `json:"type"`
}

type response struct {
	Summary string `json:"summary"`
}

func TestRedisStore_SaveThenLookup(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "test:", 10*time.Minute)
	ctx := context.Background()

	req := request{Cities: []string{"Bandung"}, Type: "linear"}
	key, err := store.keyFor(3, req)
	require.NoError(t, err)
	assert.Regexp(t, `^test:3:[0-9a-f]{64}$`, key)

	body, _ := json.Marshal(response{Summary: "ok"})
	encoded := snappy.Encode(nil, body)

	mock.ExpectGet("test:generation").SetVal("3")
	mock.ExpectGet(key).RedisNil()

	var got response
	hit, lookupKey, err := store.Lookup(ctx, req, &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, key, lookupKey)

	mock.ExpectSet(key, encoded, 10*time.Minute).SetVal("OK")
	require.NoError(t, store.Save(ctx, lookupKey, response{Summary: "ok"}))

	mock.ExpectGet("test:generation").SetVal("3")
	mock.ExpectGet(key).SetVal(string(encoded))

	hit, _, err = store.Lookup(ctx, req, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "ok", got.Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_InvalidateBetweenLookupAndSave(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "test:", time.Minute)
	ctx := context.Background()

	req := request{Cities: []string{"Sleman"}, Type: "linear"}
	oldKey, err := store.keyFor(0, req)
	require.NoError(t, err)
	newKey, err := store.keyFor(1, req)
	require.NoError(t, err)

	body, _ := json.Marshal(response{Summary: "before write"})
	encoded := snappy.Encode(nil, body)

	mock.ExpectGet("test:generation").RedisNil()
	mock.ExpectGet(oldKey).RedisNil()
	hit, key, err := store.Lookup(ctx, req, &response{})
	require.NoError(t, err)
	require.False(t, hit)

	mock.ExpectIncr("test:generation").SetVal(1)
	require.NoError(t, store.Invalidate(ctx))

	mock.ExpectSet(oldKey, encoded, time.Minute).SetVal("OK")
	require.NoError(t, store.Save(ctx, key, response{Summary: "before write"}))

	mock.ExpectGet("test:generation").SetVal("1")
	mock.ExpectGet(newKey).RedisNil()
	hit, _, err = store.Lookup(ctx, req, &response{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_SaveWithoutKey(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "test:", time.Minute)

	assert.NoError(t, store.Save(context.Background(), "", response{Summary: "ok"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_MissingGenerationStartsAtZero(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "", time.Minute)

	req := request{Type: "linear"}
	key, err := store.keyFor(0, req)
	require.NoError(t, err)

	mock.ExpectGet("analysis:generation").RedisNil()
	mock.ExpectGet(key).RedisNil()

	var got response
	hit, lookupKey, err := store.Lookup(context.Background(), req, &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, key, lookupKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_DifferentRequestsDifferentKeys(t *testing.T) {
	store := NewRedisStore(nil, "p:", time.Minute)

	a, err := store.keyFor(1, request{Cities: []string{"Bandung"}})
	require.NoError(t, err)
	b, err := store.keyFor(1, request{Cities: []string{"Bogor"}})
	require.NoError(t, err)
	c, err := store.keyFor(2, request{Cities: []string{"Bandung"}})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestRedisStore_Invalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "test:", time.Minute)

	mock.ExpectIncr("test:generation").SetVal(4)
	require.NoError(t, store.Invalidate(context.Background()))

	mock.ExpectIncr("test:generation").SetErr(errors.New("connection refused"))
	assert.Error(t, store.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_ErrorsSurface(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "test:", time.Minute)

	mock.ExpectGet("test:generation").SetErr(errors.New("connection refused"))

	var got response
	hit, key, err := store.Lookup(context.Background(), request{}, &got)
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Empty(t, key)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "test:", time.Minute)

	key, err := store.keyFor(0, request{})
	require.NoError(t, err)
	mock.ExpectGet("test:generation").RedisNil()
	mock.ExpectGet(key).SetVal("not snappy \xff\xff")

	var got response
	hit, _, err := store.Lookup(context.Background(), request{}, &got)
	assert.Error(t, err)
	assert.False(t, hit)
}

func TestNoopStore(t *testing.T) {
	var s Store = NoopStore{}
	hit, key, err := s.Lookup(context.Background(), request{}, &response{})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Empty(t, key)
	assert.NoError(t, s.Save(context.Background(), key, response{}))
	assert.NoError(t, s.Invalidate(context.Background()))
}
