package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"novel-game/internal/model"
)

// MockSessionController is a mock type for the SessionController type
type MockSessionController struct {
	mock.Mock
}

// SubmitChoice provides a mock function with given fields: index
func (_m *MockSessionController) SubmitChoice(index int) bool {
	ret := _m.Called(index)

	var r0 bool
	if rf, ok := ret.Get(0).(func(int) bool); ok {
		r0 = rf(index)
	} else {
		r0 = ret.Bool(0)
	}

	return r0
}

// Retry provides a mock function with given fields:
func (_m *MockSessionController) Retry() error {
	ret := _m.Called()

	var r0 error
	if rf, ok := ret.Get(0).(func() error); ok {
		r0 = rf()
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Close provides a mock function with given fields: ctx
func (_m *MockSessionController) Close(ctx context.Context) error {
	ret := _m.Called(ctx)

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context) error); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// Snapshot provides a mock function with given fields:
func (_m *MockSessionController) Snapshot() model.SessionSnapshot {
	ret := _m.Called()

	var r0 model.SessionSnapshot
	if rf, ok := ret.Get(0).(func() model.SessionSnapshot); ok {
		r0 = rf()
	} else {
		r0 = ret.Get(0).(model.SessionSnapshot)
	}

	return r0
}

// NewMockSessionController creates a new instance of MockSessionController.
func NewMockSessionController(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionController {
	m := &MockSessionController{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
