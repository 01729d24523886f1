package mocks

import (
	"context"
	"iter"

	"github.com/stretchr/testify/mock"

	"novel-game/internal/model"
	"novel-game/internal/service"
)

// MockAIClient is a mock type for the AIClient type
type MockAIClient struct {
	mock.Mock
}

// StreamChat provides a mock function with given fields: ctx, messages
func (_m *MockAIClient) StreamChat(ctx context.Context, messages model.Transcript) iter.Seq2[model.StreamFragment, error] {
	ret := _m.Called(ctx, messages)

	if rf, ok := ret.Get(0).(func(context.Context, model.Transcript) iter.Seq2[model.StreamFragment, error]); ok {
		return rf(ctx, messages)
	}
	if ret.Get(0) == nil {
		return nil
	}
	return ret.Get(0).(iter.Seq2[model.StreamFragment, error])
}

// CompleteChat provides a mock function with given fields: ctx, messages
func (_m *MockAIClient) CompleteChat(ctx context.Context, messages model.Transcript) (string, error) {
	ret := _m.Called(ctx, messages)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, model.Transcript) string); ok {
		r0 = rf(ctx, messages)
	} else {
		r0 = ret.String(0)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, model.Transcript) error); ok {
		r1 = rf(ctx, messages)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockAIClient creates a new instance of MockAIClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAIClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAIClient {
	m := &MockAIClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// FragmentSeq собирает последовательность из готовых фрагментов и
// необязательной завершающей ошибки.
func FragmentSeq(fragments []model.StreamFragment, err error) iter.Seq2[model.StreamFragment, error] {
	return func(yield func(model.StreamFragment, error) bool) {
		for _, f := range fragments {
			if !yield(f, nil) {
				return
			}
			if f.IsFinal {
				return
			}
		}
		if err != nil {
			yield(model.StreamFragment{}, err)
		}
	}
}

var _ service.AIClient = (*MockAIClient)(nil)
