package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName             = "github.com/dmachibya/faithexercises-api/api"
	progressEventName      = "faith.api.progress.request"
	progressEventDomain    = "app"
	progressSpanName       = "faith.api.progress"
	observabilityEventName = "observability.event"
	attrPrefix             = "faith.progress."
)

// progressRequestMetrics collects timings and outcome details of one progress
// request and emits them as a span plus a structured log event.
type progressRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	route  string
	start  time.Time

	authDuration   time.Duration
	ledgerDuration time.Duration
	encodeDuration time.Duration

	taskCount  int
	period     string
	done       *bool
	streak     *int
	errorStage string
}

func newProgressRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*progressRequestMetrics, context.Context) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, progressSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &progressRequestMetrics{
		logger: logger,
		span:   span,
		route:  route,
		start:  time.Now(),
	}, spanCtx
}

func (m *progressRequestMetrics) ObserveAuth(d time.Duration)   { m.authDuration = d }
func (m *progressRequestMetrics) ObserveLedger(d time.Duration) { m.ledgerDuration = d }
func (m *progressRequestMetrics) ObserveEncode(d time.Duration) { m.encodeDuration = d }
func (m *progressRequestMetrics) SetTaskCount(n int)            { m.taskCount = n }
func (m *progressRequestMetrics) SetPeriod(p string)            { m.period = p }
func (m *progressRequestMetrics) SetDone(done bool)             { m.done = &done }
func (m *progressRequestMetrics) SetStreak(n int)               { m.streak = &n }
func (m *progressRequestMetrics) SetErrorStage(stage string)    { m.errorStage = stage }

func (m *progressRequestMetrics) attributes(status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64(attrPrefix+"total_ms", millis(time.Since(m.start))),
		attribute.Float64(attrPrefix+"auth_ms", millis(m.authDuration)),
		attribute.Float64(attrPrefix+"ledger_ms", millis(m.ledgerDuration)),
		attribute.Float64(attrPrefix+"encode_ms", millis(m.encodeDuration)),
		attribute.Int(attrPrefix+"task_count", m.taskCount),
	}
	if m.period != "" {
		attrs = append(attrs, attribute.String(attrPrefix+"period", m.period))
	}
	if m.done != nil {
		attrs = append(attrs, attribute.Bool(attrPrefix+"done", *m.done))
	}
	if m.streak != nil {
		attrs = append(attrs, attribute.Int(attrPrefix+"streak", *m.streak))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String(attrPrefix+"error_stage", m.errorStage))
	}
	return attrs
}

// Log finishes the span and writes the observability event.
func (m *progressRequestMetrics) Log(status int, err error) {
	severityText, severityNumber := severityForStatus(status, err)
	attrs := m.attributes(status)

	m.span.SetAttributes(attrs...)
	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", progressEventName),
		attribute.String("event.domain", progressEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}
	m.span.AddEvent(observabilityEventName, trace.WithAttributes(eventAttrs...))
	switch {
	case err != nil:
		m.span.SetStatus(codes.Error, err.Error())
	case status >= 500:
		m.span.SetStatus(codes.Error, m.errorStage)
	default:
		m.span.SetStatus(codes.Ok, "")
	}
	sc := m.span.SpanContext()
	m.span.End()

	logged := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		logged[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      progressEventName,
		"event.domain":    progressEventDomain,
		"attributes":      logged,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc.HasTraceID() {
		fields["trace_id"] = sc.TraceID().String()
	}
	if sc.HasSpanID() {
		fields["span_id"] = sc.SpanID().String()
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEventName)
	case "WARN":
		entry.Warn(observabilityEventName)
	default:
		entry.Info(observabilityEventName)
	}
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	case err != nil:
		return "ERROR", 17
	default:
		return "INFO", 9
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
