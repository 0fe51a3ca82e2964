package feed

import (
	"context"
	"sync"

	"github.com/heartmarshall/activityfeed/internal/domain"
)

var _ logSource = &logSourceMock{}

type logSourceMock struct {
	FetchPageFunc func(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error)

	calls struct {
		FetchPage []struct {
			Ctx    context.Context
			Token  string
			Tables []domain.EntityKind
			Limit  int
		}
	}
	lockFetchPage sync.RWMutex
}

func (mock *logSourceMock) FetchPage(ctx context.Context, token string, tables []domain.EntityKind, limit int) (domain.LogPage, error) {
	if mock.FetchPageFunc == nil {
		panic("logSourceMock.FetchPageFunc: method is nil but logSource.FetchPage was just called")
	}
	callInfo := struct {
		Ctx    context.Context
		Token  string
		Tables []domain.EntityKind
		Limit  int
	}{Ctx: ctx, Token: token, Tables: tables, Limit: limit}
	mock.lockFetchPage.Lock()
	mock.calls.FetchPage = append(mock.calls.FetchPage, callInfo)
	mock.lockFetchPage.Unlock()
	return mock.FetchPageFunc(ctx, token, tables, limit)
}

func (mock *logSourceMock) FetchPageCalls() []struct {
	Ctx    context.Context
	Token  string
	Tables []domain.EntityKind
	Limit  int
} {
	mock.lockFetchPage.RLock()
	calls := mock.calls.FetchPage
	mock.lockFetchPage.RUnlock()
	return calls
}
