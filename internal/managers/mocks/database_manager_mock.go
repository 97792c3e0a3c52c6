package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/torao/kazzla/internal/interfaces"
)

type MockDatabaseManager struct {
	mock.Mock
}

func (m *MockDatabaseManager) GetPool() interfaces.PgxPoolIface {
	args := m.Called()
	return args.Get(0).(interfaces.PgxPoolIface)
}

// Healthy pings the mocked pool, so tests drive it with ExpectPing.
func (m *MockDatabaseManager) Healthy(ctx context.Context) error {
	return m.GetPool().Ping(ctx)
}
