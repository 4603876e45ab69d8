// Package mocks provides test doubles for the backend client.
package mocks

import (
	"context"
	"io"

	mock "github.com/stretchr/testify/mock"

	model "github.com/jellelicht/exposure-agent/internal/model"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// GetManifest provides a mock function with given fields: ctx
func (_m *MockClient) GetManifest(ctx context.Context) (*model.Manifest, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for GetManifest")
	}

	var r0 *model.Manifest
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context) (*model.Manifest, error)); ok {
		return rf(ctx)
	}
	if rf, ok := ret.Get(0).(func(context.Context) *model.Manifest); ok {
		r0 = rf(ctx)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.Manifest)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context) error); ok {
		r1 = rf(ctx)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetExposureKeySet provides a mock function with given fields: ctx, id
func (_m *MockClient) GetExposureKeySet(ctx context.Context, id string) (io.ReadCloser, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetExposureKeySet")
	}

	var r0 io.ReadCloser
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (io.ReadCloser, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) io.ReadCloser); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(io.ReadCloser)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetRiskCalculationParameters provides a mock function with given fields: ctx, id
func (_m *MockClient) GetRiskCalculationParameters(ctx context.Context, id string) (*model.RiskCalculationParameters, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetRiskCalculationParameters")
	}

	var r0 *model.RiskCalculationParameters
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.RiskCalculationParameters, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.RiskCalculationParameters); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.RiskCalculationParameters)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// GetAppConfig provides a mock function with given fields: ctx, id
func (_m *MockClient) GetAppConfig(ctx context.Context, id string) (*model.AppConfig, error) {
	ret := _m.Called(ctx, id)

	if len(ret) == 0 {
		panic("no return value specified for GetAppConfig")
	}

	var r0 *model.AppConfig
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*model.AppConfig, error)); ok {
		return rf(ctx, id)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) *model.AppConfig); ok {
		r0 = rf(ctx, id)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).(*model.AppConfig)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, id)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new MockClient and registers cleanup assertions.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
