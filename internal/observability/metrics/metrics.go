package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level OTLP instruments.
type Metrics struct {
	sessions       metric.Int64Counter
	rosterBuilds   metric.Int64Counter
	selections     metric.Int64Counter
	rosterOrgCount metric.Int64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "notewall"
	}
	meter := provider.Meter(name)

	sessions, err := meter.Int64Counter("notewall_sessions_established_total")
	if err != nil {
		return nil, err
	}
	rosterBuilds, err := meter.Int64Counter("notewall_roster_builds_total")
	if err != nil {
		return nil, err
	}
	selections, err := meter.Int64Counter("notewall_organization_selections_total")
	if err != nil {
		return nil, err
	}
	rosterOrgCount, err := meter.Int64Histogram("notewall_roster_organizations")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sessions:       sessions,
		rosterBuilds:   rosterBuilds,
		selections:     selections,
		rosterOrgCount: rosterOrgCount,
	}, nil
}

// RecordSessionEstablished increments established session counts.
func (m *Metrics) RecordSessionEstablished(ctx context.Context, hasOrganization bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("has_organization", hasOrganization))
	m.sessions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRosterBuild counts a roster build and the number of organizations it produced.
func (m *Metrics) RecordRosterBuild(ctx context.Context, organizations int) {
	if m == nil {
		return
	}
	m.rosterBuilds.Add(ctx, 1)
	m.rosterOrgCount.Record(ctx, int64(organizations))
}

// RecordSelection counts organization selections by the state they landed in.
func (m *Metrics) RecordSelection(ctx context.Context, state string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("state", strings.TrimSpace(state)))
	m.selections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"state":            {},
	"stage":            {},
	"result":           {},
	"has_organization": {},
	"status_code":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Organization names and emails are never allowed.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
