// Package mocks provides test doubles for the matching engine.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	enengine "github.com/jellelicht/exposure-agent/pkg/enengine"
)

// MockEngine is a mock type for the Engine interface.
type MockEngine struct {
	mock.Mock
}

// Enabled provides a mock function with given fields: ctx
func (_m *MockEngine) Enabled(ctx context.Context) bool {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Enabled")
	}

	var r0 bool
	if rf, ok := ret.Get(0).(func(context.Context) bool); ok {
		r0 = rf(ctx)
	} else {
		r0 = ret.Bool(0)
	}

	return r0
}

// ProvideDiagnosisKeys provides a mock function with given fields: ctx, files, cfg, token
func (_m *MockEngine) ProvideDiagnosisKeys(ctx context.Context, files []string, cfg enengine.Config, token string) error {
	ret := _m.Called(ctx, files, cfg, token)

	if len(ret) == 0 {
		panic("no return value specified for ProvideDiagnosisKeys")
	}

	var r0 error
	if rf, ok := ret.Get(0).(func(context.Context, []string, enengine.Config, string) error); ok {
		r0 = rf(ctx, files, cfg, token)
	} else {
		r0 = ret.Error(0)
	}

	return r0
}

// GetSummary provides a mock function with given fields: ctx, token
func (_m *MockEngine) GetSummary(ctx context.Context, token string) (*enengine.Summary, error) {
	ret := _m.Called(ctx, token)

	if len(ret) == 0 {
		panic("no return value specified for GetSummary")
	}

	var r0 *enengine.Summary
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*enengine.Summary, error)); ok {
		return rf(ctx, token)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *enengine.Summary); ok {
		r0 = rf(ctx, token)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*enengine.Summary)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, token)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockEngine creates a new MockEngine and registers cleanup assertions.
func NewMockEngine(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEngine {
	m := &MockEngine{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
