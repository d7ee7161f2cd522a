package services

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockSweepLocker struct {
	mock.Mock
	released int
}

func (m *MockSweepLocker) Acquire(ctx context.Context) (func(), error) {
	args := m.Called()
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func() { m.released++ }, nil
}
