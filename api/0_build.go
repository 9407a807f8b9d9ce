package api

import (
	"context"

	"github.com/fulldump/box"

	"github.com/fulldump/pagestream/service"
)

func Build(s service.Servicer, version string) *box.B {

	b := box.NewBox()

	b.WithInterceptors(injectServicer(s))

	b.Resource("/api/version").
		WithActions(box.Get(func() string {
			return version
		}).WithName("version"))

	b.Resource("/api/query/cursor").
		WithActions(box.Get(queryCursor).WithName("queryCursor"))

	b.Resource("/api/query/stream").
		WithActions(box.Get(queryStream).WithName("queryStream"))

	b.Resource("/api/query/integrity").
		WithActions(box.Get(queryIntegrity).WithName("queryIntegrity"))

	b.Resource("/api/tables").
		WithActions(
			box.Get(listTables),
			box.Post(createTable),
		)

	b.Resource("/api/tables/{tableName}").
		WithActions(
			box.Get(getTable),
			box.ActionPost(insert),
			box.ActionPost(dropTable),
		)

	return b
}

const ContextServicerKey = "f3a7b6a0-7c3e-11ef-93a4-ffbd89f9a1cd"

func SetServicer(ctx context.Context, s service.Servicer) context.Context {
	return context.WithValue(ctx, ContextServicerKey, s)
}

func GetServicer(ctx context.Context) service.Servicer {
	return ctx.Value(ContextServicerKey).(service.Servicer) // TODO: can raise panic :D
}

func injectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(SetServicer(ctx, s))
		}
	}
}
