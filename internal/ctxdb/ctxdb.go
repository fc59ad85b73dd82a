package ctxdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"fknsrs.biz/p/ytwarehouse/internal/warehouse"
)

var (
	ErrNoDB = fmt.Errorf("ctxdb: no store found in context")
)

// context registration

var storeKey int

func WithStore(ctx context.Context, s *warehouse.Store) context.Context {
	return context.WithValue(ctx, &storeKey, s)
}

func GetStore(ctx context.Context) *warehouse.Store {
	if v := ctx.Value(&storeKey); v != nil {
		return v.(*warehouse.Store)
	}

	return nil
}

func GetDB(ctx context.Context) *sql.DB {
	if s := GetStore(ctx); s != nil {
		return s.DB()
	}

	return nil
}

func UsingTx(ctx context.Context, opts *sql.TxOptions, fn warehouse.TxFunc) error {
	s := GetStore(ctx)
	if s == nil {
		return ErrNoDB
	}

	return s.UsingTx(ctx, opts, fn)
}

// middleware

func Register(s *warehouse.Store) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithStore(r.Context(), s)))
	}
}
