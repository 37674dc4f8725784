package prometheus

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

// Source is read once per scrape. *goGate.Engine implements it.
type Source interface {
	MetricsSnapshot() goGate.MetricsSnapshot
	AuditDropped() uint64
	CacheAvailable() bool
}

// Exporter renders gate metrics in the Prometheus text exposition format.
type Exporter struct {
	source Source
}

func New(engine *goGate.Engine) *Exporter {
	return &Exporter{source: engine}
}

func NewFromSource(source Source) *Exporter {
	return &Exporter{source: source}
}

// Handler serves a fresh scrape on every request.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = p.WriteTo(w)
	})
}

// Render returns the exposition text as a string.
func (p *Exporter) Render() string {
	var buf bytes.Buffer
	_, _ = p.WriteTo(&buf)
	return buf.String()
}

// WriteTo writes one scrape to w. The cache gauge is always present; counters
// and the latency histogram are left out while metrics are disabled.
func (p *Exporter) WriteTo(w io.Writer) (int64, error) {
	if p == nil || p.source == nil {
		return 0, nil
	}

	snap := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()

	cw := &countingWriter{w: bufio.NewWriterSize(w, 4096)}

	var up uint64
	if p.source.CacheAvailable() {
		up = 1
	}
	sample(cw, internaldefs.CacheAvailableName, internaldefs.CacheAvailableHelp, "gauge", up)

	if len(snap.Counters) > 0 || len(snap.Histograms) > 0 || dropped > 0 {
		for _, def := range internaldefs.CounterDefs {
			sample(cw, def.Name, def.Help, "counter", snap.Counters[def.ID])
		}
		for _, def := range internaldefs.HistogramDefs {
			if raw, ok := snap.Histograms[def.ID]; ok {
				histogram(cw, def, internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw)))
			}
		}
		sample(cw, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter", dropped)
	}

	if cw.err == nil {
		cw.err = cw.w.Flush()
	}
	return cw.n, cw.err
}

// countingWriter keeps the first write error so the render helpers stay linear.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) printf(format string, args ...any) {
	if c.err != nil {
		return
	}
	n, err := fmt.Fprintf(c.w, format, args...)
	c.n += int64(n)
	c.err = err
}

func header(cw *countingWriter, name, help, kind string) {
	cw.printf("# HELP %s %s\n# TYPE %s %s\n", name, escapeHelp(help), name, kind)
}

func sample(cw *countingWriter, name, help, kind string, value uint64) {
	header(cw, name, help, kind)
	cw.printf("%s %d\n", name, value)
}

func histogram(cw *countingWriter, def internaldefs.HistogramDef, cumulative [8]uint64) {
	header(cw, def.Name, def.Help, "histogram")
	for i, le := range internaldefs.HistogramBounds {
		cw.printf("%s_bucket{le=%q} %d\n", def.Name, le, cumulative[i])
	}
	cw.printf("%s_count %d\n", def.Name, cumulative[len(cumulative)-1])
	// Durations are bucketed, not summed.
	cw.printf("%s_sum 0\n", def.Name)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string { return helpEscaper.Replace(help) }
