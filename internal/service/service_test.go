package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"travelbook/internal/auth"
	"travelbook/internal/database"
	"travelbook/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, tt string, b *models.Booking) error {
	return m.Called(ctx, tt, b).Error(0)
}

type fakePhotos struct {
	mu      sync.Mutex
	saved   []string
	deleted []string
	err     error
}

func (f *fakePhotos) SaveImage(_ context.Context, prefix string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	name := prefix + "_" + uuid.NewString() + ".jpg"
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakePhotos) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return nil
}

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func setupRepo(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "service.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func adminActor() *auth.Claims {
	return &auth.Claims{Username: "root", Role: models.RoleAdmin}
}

func userActor(username string) *auth.Claims {
	return &auth.Claims{Username: username, Role: models.RoleUser}
}
