package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/harborline/rfq-engine/internal/domains/bidding/domain"
	"github.com/harborline/rfq-engine/internal/domains/bidding/ports"
)

// Quotes decorates the quote service with tracing, logging, and metrics.
type Quotes struct {
	inner   ports.QuoteService
	tracer  trace.Tracer
	logger  *slog.Logger
	metrics quoteMetrics
}

type QuotesOption func(*Quotes)

func WithQuotesLogger(logger *slog.Logger) QuotesOption {
	return func(q *Quotes) { q.logger = logger }
}

func WithQuotesTracer(tr trace.Tracer) QuotesOption {
	return func(q *Quotes) { q.tracer = tr }
}

func WithQuotesMeter(m metric.Meter) QuotesOption {
	return func(q *Quotes) { q.metrics = newQuoteMetrics(m) }
}

// NewQuotes wraps the core quote service.
func NewQuotes(inner ports.QuoteService, opts ...QuotesOption) ports.QuoteService {
	q := &Quotes{
		inner:   inner,
		tracer:  nooptrace.NewTracerProvider().Tracer(tracerName),
		logger:  defaultLogger(),
		metrics: newQuoteMetrics(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	if q.tracer == nil {
		q.tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}
	if q.logger == nil {
		q.logger = defaultLogger()
	}
	return q
}

func (q *Quotes) Submit(ctx context.Context, rfqID uuid.UUID, supplierOrgID string, lines []domain.QuoteLineInput, validUntil *time.Time) (*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "QuoteService.Submit", trace.WithAttributes(
		rfqAttr(rfqID),
		attribute.String("quote.supplier_org", supplierOrgID),
		attribute.Int("quote.line_count", len(lines)),
	))
	defer span.End()
	quote, err := q.inner.Submit(ctx, rfqID, supplierOrgID, lines, validUntil)
	if err != nil {
		return nil, q.handleError(ctx, span, err, "failed to submit quote",
			slog.String("rfq_id", rfqID.String()),
			slog.String("supplier_org", supplierOrgID))
	}
	q.metrics.recordSubmitted(ctx)
	q.logInfo(ctx, "quote submitted",
		slog.String("rfq_id", rfqID.String()),
		slog.String("thread_id", quote.ThreadID.String()),
		slog.String("supplier_org", supplierOrgID),
		slog.String("total", quote.TotalAmount.String()))
	return quote, nil
}

func (q *Quotes) Revise(ctx context.Context, threadID uuid.UUID, supplierOrgID string, lines []domain.QuoteLineInput, validUntil *time.Time) (*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "QuoteService.Revise", trace.WithAttributes(
		threadAttr(threadID),
		attribute.String("quote.supplier_org", supplierOrgID),
	))
	defer span.End()
	quote, err := q.inner.Revise(ctx, threadID, supplierOrgID, lines, validUntil)
	if err != nil {
		return nil, q.handleError(ctx, span, err, "failed to revise quote",
			slog.String("thread_id", threadID.String()),
			slog.String("supplier_org", supplierOrgID))
	}
	q.metrics.recordRevised(ctx)
	q.logInfo(ctx, "quote revised",
		slog.String("thread_id", threadID.String()),
		slog.Int("version", quote.Version))
	return quote, nil
}

func (q *Quotes) Withdraw(ctx context.Context, threadID uuid.UUID, supplierOrgID string) (*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "QuoteService.Withdraw", trace.WithAttributes(
		threadAttr(threadID),
		attribute.String("quote.supplier_org", supplierOrgID),
	))
	defer span.End()
	quote, err := q.inner.Withdraw(ctx, threadID, supplierOrgID)
	if err != nil {
		return nil, q.handleError(ctx, span, err, "failed to withdraw quote",
			slog.String("thread_id", threadID.String()),
			slog.String("supplier_org", supplierOrgID))
	}
	q.metrics.recordWithdrawn(ctx)
	q.logInfo(ctx, "quote withdrawn", slog.String("thread_id", threadID.String()))
	return quote, nil
}

func (q *Quotes) GetThread(ctx context.Context, threadID uuid.UUID) ([]*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "QuoteService.GetThread", trace.WithAttributes(threadAttr(threadID)))
	defer span.End()
	return q.inner.GetThread(ctx, threadID)
}

func (q *Quotes) RankedQuotes(ctx context.Context, rfqID uuid.UUID) ([]*domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "QuoteService.RankedQuotes", trace.WithAttributes(rfqAttr(rfqID)))
	defer span.End()
	return q.inner.RankedQuotes(ctx, rfqID)
}

func (q *Quotes) handleError(ctx context.Context, span trace.Span, err error, msg string, attrs ...slog.Attr) error {
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if q.logger != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		q.logger.LogAttrs(ctx, slog.LevelError, msg, attrs...)
	}
	return err
}

func (q *Quotes) logInfo(ctx context.Context, msg string, attrs ...slog.Attr) {
	if q.logger == nil {
		return
	}
	q.logger.LogAttrs(ctx, slog.LevelInfo, msg, attrs...)
}

type quoteMetrics struct {
	submitted metric.Int64Counter
	revised   metric.Int64Counter
	withdrawn metric.Int64Counter
}

func newQuoteMetrics(m metric.Meter) quoteMetrics {
	if m == nil {
		return quoteMetrics{}
	}
	submitted, _ := m.Int64Counter("rfq.quotes.submitted", metric.WithDescription("Number of quotes submitted"))
	revised, _ := m.Int64Counter("rfq.quotes.revised", metric.WithDescription("Number of quote revisions"))
	withdrawn, _ := m.Int64Counter("rfq.quotes.withdrawn", metric.WithDescription("Number of quotes withdrawn"))
	return quoteMetrics{submitted: submitted, revised: revised, withdrawn: withdrawn}
}

func (m quoteMetrics) recordSubmitted(ctx context.Context) {
	if m.submitted != nil {
		m.submitted.Add(ctx, 1)
	}
}

func (m quoteMetrics) recordRevised(ctx context.Context) {
	if m.revised != nil {
		m.revised.Add(ctx, 1)
	}
}

func (m quoteMetrics) recordWithdrawn(ctx context.Context) {
	if m.withdrawn != nil {
		m.withdrawn.Add(ctx, 1)
	}
}

func threadAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("quote.thread_id", id.String())
}

var _ ports.QuoteService = (*Quotes)(nil)
