package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

var tracer = otel.Tracer("ledger-repository")

// UnitOfWorkWithTracing wraps a unit of work in a span.
// Individual statements are traced by the otelgorm plugin.
type UnitOfWorkWithTracing struct {
	next domain.UnitOfWork
	name string
}

// NewUnitOfWorkWithTracing creates a traced unit of work
func NewUnitOfWorkWithTracing(next domain.UnitOfWork, name string) *UnitOfWorkWithTracing {
	return &UnitOfWorkWithTracing{next: next, name: name}
}

// Do with tracing
func (u *UnitOfWorkWithTracing) Do(ctx context.Context, fn func(repos domain.Repositories) error) error {
	ctx, span := tracer.Start(ctx, "unit_of_work.Do",
		trace.WithAttributes(
			attribute.String("db.unit_of_work", u.name),
		),
	)
	defer span.End()

	err := u.next.Do(ctx, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("db.rolled_back", true))
		return err
	}

	span.SetAttributes(attribute.Bool("db.rolled_back", false))
	return nil
}

func (u *UnitOfWorkWithTracing) Reader() domain.Repositories {
	return u.next.Reader()
}
