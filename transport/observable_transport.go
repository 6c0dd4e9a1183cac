package transport

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/esx/log"
	"github.com/hatlonely/esx/log/logger"
	"github.com/hatlonely/esx/ref"
)

type ObservableTransportOptions struct {
	// Transport 被包装的 Transport
	Transport *ref.TypeOptions `cfg:"transport" validate:"required"`

	Logger *logger.SLogOptions `cfg:"logger"`

	EnableMetrics bool `cfg:"enableMetrics" def:"true"`
	EnableLogging bool `cfg:"enableLogging" def:"true"`
	EnableTracing bool `cfg:"enableTracing" def:"false"`

	// Name 指标名前缀，也是日志的 component 和 span 的 component 属性
	Name string `cfg:"name" def:"esx_transport"`
}

// ObservableMetrics 搜索请求的 prometheus 指标
type ObservableMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
}

// NewObservableMetrics 创建并注册到默认 registry，同名指标已注册时复用已有的
func NewObservableMetrics(name string) *ObservableMetrics {
	return &ObservableMetrics{
		requestCounter: registerCollector(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_requests_total",
				Help: "Total number of search requests",
			},
			[]string{"index", "status"},
		)),
		requestDuration: registerCollector(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_request_duration_seconds",
				Help:    "Duration of search requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"index"},
		)),
		responseSize: registerCollector(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_response_size_bytes",
				Help:    "Size of search responses in bytes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 8),
			},
			[]string{"index"},
		)),
	}
}

func registerCollector[C prometheus.Collector](c C) C {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// ObservableTransport 为任何 Transport 添加指标、日志和追踪
type ObservableTransport struct {
	transport Transport

	logger        logger.Logger
	metrics       *ObservableMetrics
	tracer        trace.Tracer
	name          string
	enableMetrics bool
	enableLogging bool
	enableTracing bool
}

func NewObservableTransportWithOptions(options *ObservableTransportOptions) (*ObservableTransport, error) {
	if options == nil || options.Transport == nil {
		return nil, errors.New("transport is required")
	}

	t, err := NewTransportWithOptions(options.Transport)
	if err != nil {
		return nil, errors.WithMessage(err, "create underlying transport failed")
	}
	return NewObservableTransport(t, options)
}

// NewObservableTransport 包装已有的 Transport，忽略 options.Transport
func NewObservableTransport(t Transport, options *ObservableTransportOptions) (*ObservableTransport, error) {
	if options == nil {
		options = &ObservableTransportOptions{}
	}
	name := options.Name
	if name == "" {
		name = "esx_transport"
	}

	obs := &ObservableTransport{
		transport:     t,
		name:          name,
		enableMetrics: options.EnableMetrics,
		enableLogging: options.EnableLogging,
		enableTracing: options.EnableTracing,
	}

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "log.NewLoggerWithOptions failed")
		}
		obs.logger = l.WithGroup("observableTransport")
	}
	if options.EnableMetrics {
		obs.metrics = NewObservableMetrics(name)
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer("esx.transport." + name)
	}
	return obs, nil
}

func (obs *ObservableTransport) Search(ctx context.Context, index []string, body []byte) ([]byte, error) {
	start := time.Now()
	indexLabel := strings.Join(index, ",")

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "esx.search",
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.StringSlice("db.elasticsearch.index", index),
				attribute.Int("request.size", len(body)),
			),
		)
		defer span.End()
	}

	res, err := obs.transport.Search(ctx, index, body)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
			attribute.Int("response.size", len(res)),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.requestCounter.WithLabelValues(indexLabel, status).Inc()
		obs.metrics.requestDuration.WithLabelValues(indexLabel).Observe(duration.Seconds())
		if err == nil {
			obs.metrics.responseSize.WithLabelValues(indexLabel).Observe(float64(len(res)))
		}
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.ErrorContext(ctx, "search failed",
				"component", obs.name, "index", indexLabel, "duration", duration, "error", err.Error())
		} else {
			obs.logger.InfoContext(ctx, "search",
				"component", obs.name, "index", indexLabel, "duration", duration, "size", len(res))
		}
	}

	return res, err
}
