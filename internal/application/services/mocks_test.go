package services_test

import (
	"context"
	"time"

	"github.com/CiaranKeogh/Portfolio-Projects/internal/domain/entities"
	"github.com/stretchr/testify/mock"
)

type MockRunLocker struct {
	mock.Mock
}

func (m *MockRunLocker) AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockRunLocker) ReleaseLock(ctx context.Context, key, owner string) error {
	return m.Called(ctx, key, owner).Error(0)
}

type MockCacheProvider struct {
	mock.Mock
}

func (m *MockCacheProvider) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheProvider) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return m.Called(ctx, key, value, expirationSeconds).Error(0)
}

func (m *MockCacheProvider) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.PriceRunEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PriceRunEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.PriceRunEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) EnsureIndex(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSearchIndex) ResetIndex(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockSearchIndex) Index(ctx context.Context, entry *entities.SearchEntry) error {
	return m.Called(ctx, entry).Error(0)
}
