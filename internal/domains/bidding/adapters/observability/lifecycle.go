package observability

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

const tracerName = "github.com/harborline/rfq-engine/internal/domains/bidding/adapters/observability"

// Lifecycle decorates the lifecycle service with tracing, logging, and metrics.
type Lifecycle struct {
	inner   ports.LifecycleService
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics lifecycleMetrics
}

type LifecycleOption func(*Lifecycle)

func WithLifecycleLogger(logger *slog.Logger) LifecycleOption {
	return func(l *Lifecycle) { l.logger = logger }
}

func WithLifecycleTracer(tr trace.Tracer) LifecycleOption {
	return func(l *Lifecycle) { l.tracer = tr }
}

func WithLifecycleMeter(m metric.Meter) LifecycleOption {
	return func(l *Lifecycle) { l.metrics = newLifecycleMetrics(m) }
}

// NewLifecycle wraps the core lifecycle service.
func NewLifecycle(inner ports.LifecycleService, opts ...LifecycleOption) ports.LifecycleService {
	l := &Lifecycle{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newLifecycleMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.tracer == nil {
		l.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if l.logger == nil {
		l.logger = defaultLogger()
	}
	return l
}

func (l *Lifecycle) CreateRFQ(ctx context.Context, input ports.CreateRFQInput) (*domain.RFQ, error) {
	ctx, span := l.tracer.Start(ctx, "LifecycleService.CreateRFQ", trace.WithAttributes(
		attribute.String("rfq.reference", input.Reference),
		attribute.String("rfq.buyer_org", input.BuyerOrgID),
	))
	defer span.End()
	rfq, err := l.inner.CreateRFQ(ctx, input)
	if err != nil {
		return nil, l.handleError(ctx, span, err, "failed to create rfq", slog.String("reference", input.Reference))
	}
	l.metrics.recordCreated(ctx)
	l.logInfo(ctx, "rfq created", slog.String("rfq_id", rfq.ID.String()), slog.String("reference", rfq.Reference))
	return rfq, nil
}

func (l *Lifecycle) UpdateDraft(ctx context.Context, input ports.UpdateDraftInput) (*domain.RFQ, error) {
	ctx, span := l.tracer.Start(ctx, "LifecycleService.UpdateDraft", trace.WithAttributes(rfqAttr(input.RFQID)))
	defer span.End()
	rfq, err := l.inner.UpdateDraft(ctx, input)
	if err != nil {
		return nil, l.handleError(ctx, span, err, "failed to update draft", slog.String("rfq_id", input.RFQID.String()))
	}
	return rfq, nil
}

func (l *Lifecycle) DeleteDraft(ctx context.Context, rfqID uuid.UUID, actor string) error {
	ctx, span := l.tracer.Start(ctx, "LifecycleService.DeleteDraft", trace.WithAttributes(rfqAttr(rfqID)))
	defer span.End()
	if err := l.inner.DeleteDraft(ctx, rfqID, actor); err != nil {
		return l.handleError(ctx, span, err, "failed to delete draft", slog.String("rfq_id", rfqID.String()))
	}
	l.logInfo(ctx, "draft deleted", slog.String("rfq_id", rfqID.String()))
	return nil
}

func (l *Lifecycle) Publish(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error) {
	return l.transition(ctx, "LifecycleService.Publish", domain.TransitionPublish, rfqID, func(ctx context.Context) (*domain.RFQ, error) {
		return l.inner.Publish(ctx, rfqID, actor)
	})
}

func (l *Lifecycle) OpenBidding(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error) {
	return l.transition(ctx, "LifecycleService.OpenBidding", domain.TransitionOpenBidding, rfqID, func(ctx context.Context) (*domain.RFQ, error) {
		return l.inner.OpenBidding(ctx, rfqID, actor)
	})
}

func (l *Lifecycle) CloseBidding(ctx context.Context, rfqID uuid.UUID, actor string, trigger domain.TriggerSource) (*domain.RFQ, error) {
	return l.transition(ctx, "LifecycleService.CloseBidding", domain.TransitionCloseBidding, rfqID, func(ctx context.Context) (*domain.RFQ, error) {
		return l.inner.CloseBidding(ctx, rfqID, actor, trigger)
	})
}

func (l *Lifecycle) StartEvaluation(ctx context.Context, rfqID uuid.UUID, actor string) (*domain.RFQ, error) {
	return l.transition(ctx, "LifecycleService.StartEvaluation", domain.TransitionStartEvaluation, rfqID, func(ctx context.Context) (*domain.RFQ, error) {
		return l.inner.StartEvaluation(ctx, rfqID, actor)
	})
}

func (l *Lifecycle) Complete(ctx context.Context, rfqID uuid.UUID, actor string, fulfilmentConfirmed bool) (*domain.RFQ, error) {
	return l.transition(ctx, "LifecycleService.Complete", domain.TransitionComplete, rfqID, func(ctx context.Context) (*domain.RFQ, error) {
		return l.inner.Complete(ctx, rfqID, actor, fulfilmentConfirmed)
	})
}

func (l *Lifecycle) Cancel(ctx context.Context, rfqID uuid.UUID, actor, reason string) (*domain.RFQ, error) {
	return l.transition(ctx, "LifecycleService.Cancel", domain.TransitionCancel, rfqID, func(ctx context.Context) (*domain.RFQ, error) {
		return l.inner.Cancel(ctx, rfqID, actor, reason)
	})
}

func (l *Lifecycle) GetRFQ(ctx context.Context, rfqID uuid.UUID) (*domain.RFQ, error) {
	ctx, span := l.tracer.Start(ctx, "LifecycleService.GetRFQ", trace.WithAttributes(rfqAttr(rfqID)))
	defer span.End()
	return l.inner.GetRFQ(ctx, rfqID)
}

func (l *Lifecycle) ListTransitions(ctx context.Context, rfqID uuid.UUID) ([]*domain.TransitionRecord, error) {
	ctx, span := l.tracer.Start(ctx, "LifecycleService.ListTransitions", trace.WithAttributes(rfqAttr(rfqID)))
	defer span.End()
	return l.inner.ListTransitions(ctx, rfqID)
}

func (l *Lifecycle) transition(ctx context.Context, spanName string, kind domain.TransitionType, rfqID uuid.UUID, fn func(context.Context) (*domain.RFQ, error)) (*domain.RFQ, error) {
	ctx, span := l.tracer.Start(ctx, spanName, trace.WithAttributes(
		rfqAttr(rfqID),
		attribute.String("rfq.transition", string(kind)),
	))
	defer span.End()
	rfq, err := fn(ctx)
	if err != nil {
		return nil, l.handleError(ctx, span, err, "rfq transition failed",
			slog.String("rfq_id", rfqID.String()),
			slog.String("transition", string(kind)))
	}
	l.metrics.recordTransition(ctx, kind)
	l.logInfo(ctx, "rfq transitioned",
		slog.String("rfq_id", rfq.ID.String()),
		slog.String("transition", string(kind)),
		slog.String("status", string(rfq.Status)))
	return rfq, nil
}

func (l *Lifecycle) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	l.logError(ctx, msg, err, attrs...)
	return err
}

func (l *Lifecycle) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	l.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

func (l *Lifecycle) logError(ctx context.Context, msg string, err error, attrs ...slog.Attr) {
	if l.logger == nil {
		return
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
}

type lifecycleMetrics struct {
	created     metric.Int64Counter
	transitions metric.Int64Counter
}

func newLifecycleMetrics(m metric.Meter) lifecycleMetrics {
	if m == nil {
		return lifecycleMetrics{}
	}
	created, _ := m.Int64Counter("rfq.lifecycle.created", metric.WithDescription("Number of RFQs created"))
	transitions, _ := m.Int64Counter("rfq.lifecycle.transitions", metric.WithDescription("Number of RFQ state transitions"))
	return lifecycleMetrics{created: created, transitions: transitions}
}

func (m lifecycleMetrics) recordCreated(ctx context.Context) {
	if m.created != nil {
		m.created.Add(ctx, 1)
	}
}

func (m lifecycleMetrics) recordTransition(ctx context.Context, kind domain.TransitionType) {
	if m.transitions != nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("rfq.transition", string(kind))))
	}
}

func rfqAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("rfq.id", id.String())
}

func defaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var _ ports.LifecycleService = (*Lifecycle)(nil)
