package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/sendline/internal/core"
	"github.com/edvin/sendline/internal/model"
)

type mockEmailService struct {
	mock.Mock
}

func (m *mockEmailService) Submit(ctx context.Context, req core.SubmitEmail) (*model.Email, bool, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.Email), args.Bool(1), args.Error(2)
}

func (m *mockEmailService) Get(ctx context.Context, accountID string, id int64) (*model.Email, error) {
	args := m.Called(ctx, accountID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Email), args.Error(1)
}

func (m *mockEmailService) ListByAccount(ctx context.Context, accountID string, limit int, cursor int64, status string) ([]model.Email, bool, error) {
	args := m.Called(ctx, accountID, limit, cursor, status)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).([]model.Email), args.Bool(1), args.Error(2)
}

type mockUsageService struct {
	mock.Mock
}

func (m *mockUsageService) MonthlyUsage(ctx context.Context, accountID string, t time.Time) (*model.MonthlyUsage, error) {
	args := m.Called(ctx, accountID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MonthlyUsage), args.Error(1)
}
