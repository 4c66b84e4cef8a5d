package dataset

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrSourceUnavailable   = errors.New("source unavailable")
	ErrInconsistentSources = errors.New("inconsistent sources")
	ErrMalformedRow        = errors.New("malformed row")
)

// Kind classifies load errors and recoverable diagnostics.
type Kind string

const (
	KindSourceUnavailable   Kind = "source_unavailable"
	KindMalformedRow        Kind = "malformed_row"
	KindParseWarning        Kind = "parse_warning"
	KindInconsistentSources Kind = "inconsistent_sources"
	KindZeroSubstituted     Kind = "zero_substituted"
	KindCanceled            Kind = "canceled"
)

// LoadError is the terminal error of a load. Only SourceUnavailable,
// InconsistentSources and Canceled ever reach the caller.
type LoadError struct {
	Op     string
	Kind   Kind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Source != "" {
		msg += fmt.Sprintf(" (source=%s)", e.Source)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	switch e.Kind {
	case KindSourceUnavailable:
		return target == ErrSourceUnavailable
	case KindInconsistentSources:
		return target == ErrInconsistentSources
	}
	return false
}

// IsKind reports whether err is a LoadError of the given kind.
func IsKind(err error, kind Kind) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind == kind
	}
	return false
}

// Diagnostic is a recovered anomaly. Row and Col are -1 when not applicable;
// Row is the data row index (header excluded) in the named source.
type Diagnostic struct {
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Msg    string `json:"msg"`
}

// maxDiagnosticEvents bounds the retained events; counts are always exact.
const maxDiagnosticEvents = 200

// Diagnostics counts every recovered anomaly and keeps the first few for
// inspection. Safe for concurrent use.
type Diagnostics struct {
	mu     sync.Mutex
	counts map[Kind]int
	events []Diagnostic
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{counts: make(map[Kind]int)}
}

func (d *Diagnostics) add(kind Kind, source string, row, col int, format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[kind]++
	if len(d.events) < maxDiagnosticEvents {
		d.events = append(d.events, Diagnostic{
			Kind:   kind,
			Source: source,
			Row:    row,
			Col:    col,
			Msg:    fmt.Sprintf(format, args...),
		})
	}
}

// Count returns how many diagnostics of kind were recorded.
func (d *Diagnostics) Count(kind Kind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts[kind]
}

// Counts returns a copy of the per-kind counters.
func (d *Diagnostics) Counts() map[Kind]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[Kind]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

// Events returns a copy of the retained diagnostics, oldest first.
func (d *Diagnostics) Events() []Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Diagnostic(nil), d.events...)
}

func (d *Diagnostics) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, v := range d.counts {
		n += v
	}
	return n
}
