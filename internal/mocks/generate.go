// Package mocks provides gomock implementations of crmdesk interfaces.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests (from an external _test package to avoid import cycles):
//
//	ctrl := gomock.NewController(t)
//	src := mocks.NewMockSource[model.Lead](ctrl)
//	src.EXPECT().List(gomock.Any(), gomock.Any()).Return(page, nil)
package mocks

// Generate mock for the generic Source interface from internal/query.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=source_mock.go github.com/richmansdream/crmdesk/internal/query Source
