package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is read once per collection. *goGate.Engine implements it.
type Source interface {
	MetricsSnapshot() goGate.MetricsSnapshot
	AuditDropped() uint64
	CacheAvailable() bool
}

// latencyInstruments mirror the Prometheus histogram layout: one gauge with an
// le attribute per bound, plus the sample count.
type latencyInstruments struct {
	id      goGate.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	bounds  []metric.ObserveOption
}

// Exporter publishes gate counters as OTel observable instruments.
type Exporter struct {
	source       Source
	registration metric.Registration

	counters       map[goGate.MetricID]metric.Int64ObservableCounter
	latency        []latencyInstruments
	auditDropped   metric.Int64ObservableCounter
	cacheAvailable metric.Int64ObservableGauge
}

func New(meter metric.Meter, engine *goGate.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, engine)
}

// NewFromSource creates the instruments and registers a single callback that
// takes one snapshot per collection.
func NewFromSource(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[goGate.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = c
		observables = append(observables, c)
	}

	for _, def := range internaldefs.HistogramDefs {
		li, err := newLatencyInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		e.latency = append(e.latency, li)
		observables = append(observables, li.buckets, li.count)
	}

	var err error
	if e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp)); err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	if e.cacheAvailable, err = meter.Int64ObservableGauge(internaldefs.CacheAvailableName,
		metric.WithDescription(internaldefs.CacheAvailableHelp)); err != nil {
		return nil, fmt.Errorf("gauge %s: %w", internaldefs.CacheAvailableName, err)
	}
	observables = append(observables, e.auditDropped, e.cacheAvailable)

	if e.registration, err = meter.RegisterCallback(e.observe, observables...); err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func newLatencyInstruments(meter metric.Meter, def internaldefs.HistogramDef) (latencyInstruments, error) {
	li := latencyInstruments{id: def.ID}

	var err error
	if li.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per le bound."),
		metric.WithUnit("1")); err != nil {
		return li, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	if li.count, err = meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count.")); err != nil {
		return li, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}

	li.bounds = make([]metric.ObserveOption, len(internaldefs.HistogramBounds))
	for i, le := range internaldefs.HistogramBounds {
		li.bounds[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}
	return li, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, c := range e.counters {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	}

	for _, li := range e.latency {
		raw, ok := snap.Histograms[li.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, opt := range li.bounds {
			o.ObserveInt64(li.buckets, int64(cumulative[i]), opt)
		}
		o.ObserveInt64(li.count, int64(cumulative[len(cumulative)-1]))
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))

	var up int64
	if e.source.CacheAvailable() {
		up = 1
	}
	o.ObserveInt64(e.cacheAvailable, up)
	return nil
}

// Close unregisters the callback. The meter provider stays with the caller.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
