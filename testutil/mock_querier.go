package testutil

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/mock"
	"github.com/sweater-ventures/gulp/db"
)

// MockQuerier is a testify mock implementation of db.Querier.
type MockQuerier struct {
	mock.Mock
}

var _ db.Querier = (*MockQuerier)(nil)

func (m *MockQuerier) ClaimEvent(ctx context.Context, arg db.ClaimEventParams) (db.Event, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.Event), args.Error(1)
}

func (m *MockQuerier) CountEvents(ctx context.Context, arg db.CountEventsParams) (int64, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuerier) CountEventsByHour(ctx context.Context, arg db.CountEventsByHourParams) ([]db.CountEventsByHourRow, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]db.CountEventsByHourRow), args.Error(1)
}

func (m *MockQuerier) CountEventsByStatus(ctx context.Context, arg db.CountEventsByStatusParams) ([]db.CountEventsByStatusRow, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]db.CountEventsByStatusRow), args.Error(1)
}

func (m *MockQuerier) CountEventsByType(ctx context.Context, arg db.CountEventsByTypeParams) ([]db.CountEventsByTypeRow, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]db.CountEventsByTypeRow), args.Error(1)
}

func (m *MockQuerier) GetEventByID(ctx context.Context, id pgtype.UUID) (db.Event, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(db.Event), args.Error(1)
}

func (m *MockQuerier) GetEventByIdempotencyKey(ctx context.Context, idempotencyKey pgtype.Text) (db.Event, error) {
	args := m.Called(ctx, idempotencyKey)
	return args.Get(0).(db.Event), args.Error(1)
}

func (m *MockQuerier) InsertEvent(ctx context.Context, arg db.InsertEventParams) (db.Event, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.Event), args.Error(1)
}

func (m *MockQuerier) ListAttemptsForEvent(ctx context.Context, eventID pgtype.UUID) ([]db.DeliveryAttempt, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).([]db.DeliveryAttempt), args.Error(1)
}

func (m *MockQuerier) ListRunnableEvents(ctx context.Context, arg db.ListRunnableEventsParams) ([]pgtype.UUID, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]pgtype.UUID), args.Error(1)
}

func (m *MockQuerier) RecordAttempt(ctx context.Context, arg db.RecordAttemptParams) (db.DeliveryAttempt, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.DeliveryAttempt), args.Error(1)
}

func (m *MockQuerier) ReleaseEvent(ctx context.Context, arg db.ReleaseEventParams) (db.Event, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(db.Event), args.Error(1)
}

func (m *MockQuerier) SearchEvents(ctx context.Context, arg db.SearchEventsParams) ([]db.Event, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]db.Event), args.Error(1)
}
