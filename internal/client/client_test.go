package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"travelbook/internal/models"
	"travelbook/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_ValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c := New(ts.URL)
	cases := []validation.Registration{
		{Username: "bob", Email: "bob@example.com", Password: "123", ConfirmedPassword: "123"},
		{Username: "bob", Email: "bob@example.com", Password: "secret1", ConfirmedPassword: "secret2"},
		{Username: "bo b", Email: "bob@example.com", Password: "secret1", ConfirmedPassword: "secret1"},
		{Username: "bob", Email: "not-an-email", Password: "secret1", ConfirmedPassword: "secret1"},
		{Username: "bob", Email: "bob@example.com", Password: strings.Repeat("x", validation.MaxPasswordLength+1), ConfirmedPassword: strings.Repeat("x", validation.MaxPasswordLength+1)},
	}
	for _, form := range cases {
		_, err := c.Register(context.Background(), form)
		var verr *validation.Error
		assert.True(t, errors.As(err, &verr), "expected validation error for %+v", form)
	}
	assert.Zero(t, calls.Load(), "no request may reach the server")
}

func TestRegisterAndLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/register", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"msg":"Account bob created successfully"}`))
	})
	mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid username or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-1","user":{"username":"bob"}}`))
	})
	mux.HandleFunc("GET /cart", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"key":"k1","from":"A","to":"B","adult":2,"child":0}]`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	c := New(ts.URL)
	ctx := context.Background()

	msg, err := c.Register(ctx, validation.Registration{Username: "bob", Email: "bob@example.com", Password: "secret1", ConfirmedPassword: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Account bob created successfully", msg)

	_, err = c.Login(ctx, "bob", "bad")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid username or password", apiErr.Message)

	_, err = c.Cart(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	res, err := c.Login(ctx, "bob", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Token)

	items, err := c.Cart(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Adults)
}

func TestPlaces_RedisCache(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/places/places/beach", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]models.Place{{ID: "p1", Category: "beach"}})
	}))
	defer ts.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	c := New(ts.URL)
	c.UseRedisCache(rdb, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		places, err := c.Places(ctx, "beach")
		require.NoError(t, err)
		require.Len(t, places, 1)
		assert.Equal(t, "p1", places[0].ID)
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, mr.Exists("places:beach"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Places(ctx, "beach")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRemoveFromCart(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/cart/items/k2" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`[{"key":"k1"},{"key":"k3"}]`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	left, err := c.RemoveFromCart(context.Background(), "k2")
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, "k3", left[1].Key)

	_, err = c.RemoveFromCart(context.Background(), "missing")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestAPIErrorPlainBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Place(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}
