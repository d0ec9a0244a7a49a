// Package mocks provides testify doubles for the port interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/backdrop/internal/domain"
	"github.com/bnema/backdrop/internal/port"
)

type JobStoreMock struct {
	mock.Mock
}

func NewJobStoreMock(t *testing.T) *JobStoreMock {
	m := &JobStoreMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *JobStoreMock) Save(ctx context.Context, j *domain.Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *JobStoreMock) Get(ctx context.Context, id string) (*domain.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *JobStoreMock) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *JobStoreMock) ListBySession(ctx context.Context, sessionID string) ([]*domain.Job, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *JobStoreMock) ListExpired(ctx context.Context) ([]*domain.Job, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Job), args.Error(1)
}

func (m *JobStoreMock) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	return m.Called(ctx, id, status, errMsg).Error(0)
}

func (m *JobStoreMock) UpdateCompleted(ctx context.Context, j *domain.Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *JobStoreMock) UpdateFailed(ctx context.Context, id string, errMsg string, processingMs int64) error {
	return m.Called(ctx, id, errMsg, processingMs).Error(0)
}

type BlobStoreMock struct {
	mock.Mock
}

func NewBlobStoreMock(t *testing.T) *BlobStoreMock {
	m := &BlobStoreMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BlobStoreMock) Put(ctx context.Context, container, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, container, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *BlobStoreMock) Get(ctx context.Context, container, key string) ([]byte, error) {
	args := m.Called(ctx, container, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *BlobStoreMock) Delete(ctx context.Context, container, key string) error {
	return m.Called(ctx, container, key).Error(0)
}

func (m *BlobStoreMock) URL(container, key string) string {
	return m.Called(container, key).String(0)
}

type TaskQueueMock struct {
	mock.Mock
}

func NewTaskQueueMock(t *testing.T) *TaskQueueMock {
	m := &TaskQueueMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TaskQueueMock) Enqueue(ctx context.Context, jobID string) (*domain.Task, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *TaskQueueMock) Claim(ctx context.Context) (*domain.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *TaskQueueMock) Complete(ctx context.Context, taskID int64) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *TaskQueueMock) Fail(ctx context.Context, taskID int64, errMsg string) error {
	return m.Called(ctx, taskID, errMsg).Error(0)
}

func (m *TaskQueueMock) ResetStalled(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type BackgroundRemoverMock struct {
	mock.Mock
}

func NewBackgroundRemoverMock(t *testing.T) *BackgroundRemoverMock {
	m := &BackgroundRemoverMock{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BackgroundRemoverMock) Remove(ctx context.Context, image []byte) ([]byte, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *BackgroundRemoverMock) Validate() error {
	return m.Called().Error(0)
}

func (m *BackgroundRemoverMock) Name() string {
	return m.Called().String(0)
}

var (
	_ port.JobStore          = (*JobStoreMock)(nil)
	_ port.BlobStore         = (*BlobStoreMock)(nil)
	_ port.TaskQueue         = (*TaskQueueMock)(nil)
	_ port.BackgroundRemover = (*BackgroundRemoverMock)(nil)
)
