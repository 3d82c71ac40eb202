// Package annotate applies a read-name edit table to a stream of
// alignment records.
package annotate

import (
	"context"
	"fmt"
	"io"

	"github.com/biogo/hts/sam"
	"github.com/scttfrdmn/tagreads-go/pkg/edits"
	"github.com/scttfrdmn/tagreads-go/pkg/errs"
	"github.com/scttfrdmn/tagreads-go/pkg/logging"
	"github.com/scttfrdmn/tagreads-go/pkg/tags"
)

// DefaultLogTick is the number of records between progress lines
const DefaultLogTick = 10_000_000

// RecordReader yields alignment records until io.EOF
type RecordReader interface {
	Read() (*sam.Record, error)
}

// RecordWriter consumes alignment records
type RecordWriter interface {
	Write(*sam.Record) error
}

// TextMode says how the tag column of the edit table is read
type TextMode int

const (
	// IDValuePair: the column holds a full ID:VALUE token added next to
	// the default tag
	IDValuePair TextMode = iota

	// BareValue: the column holds only a value for the default tag
	BareValue
)

func (m TextMode) String() string {
	if m == BareValue {
		return "bare-value"
	}
	return "id-value"
}

// Config holds annotation settings
type Config struct {
	// DefaultTag is applied to every matched read. Without a value it
	// switches the table's tag column to BareValue mode.
	DefaultTag *tags.Tag

	// Flag is OR-ed into every matched read
	Flag    uint16
	HasFlag bool

	// LogTick is the number of records between progress lines
	LogTick int

	Logger *logging.Logger
}

// NewConfig creates a Config with defaults
func NewConfig() Config {
	return Config{
		LogTick: DefaultLogTick,
		Logger:  logging.Discard(),
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.LogTick < 1 {
		return fmt.Errorf("%w: log tick must be >= 1", errs.ErrConfiguration)
	}
	if c.DefaultTag != nil && c.DefaultTag.Value == nil {
		return fmt.Errorf("%w: default tag %s has no value", errs.ErrConfiguration, c.DefaultTag.ID)
	}
	return nil
}

// Mode resolves the TextMode implied by the default tag
func (c *Config) Mode() TextMode {
	if c.DefaultTag != nil && tags.IsUnset(c.DefaultTag.Value) {
		return BareValue
	}
	return IDValuePair
}

// Counters tracks records seen and records matched by the table
type Counters struct {
	Processed int
	Matched   int
}

// Percent returns the truncated integer percentage of matched records
func (c Counters) Percent() int {
	if c.Processed == 0 {
		return 0
	}
	return 100 * c.Matched / c.Processed
}

// Engine annotates records from a read-name table
type Engine struct {
	table    edits.Table
	config   Config
	mode     TextMode
	log      *logging.Logger
	counters Counters

	// working is the per-record tag list; preset is its length before a
	// match (1 with a default tag, 0 without)
	working []tags.Tag
	preset  int
}

// NewEngine creates an engine over table
func NewEngine(table edits.Table, config Config) (*Engine, error) {
	if config.LogTick == 0 {
		config.LogTick = DefaultLogTick
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		table:  table,
		config: config,
		mode:   config.Mode(),
		log:    config.Logger,
	}
	if config.DefaultTag != nil {
		e.working = append(e.working, *config.DefaultTag)
		e.preset = 1
	}
	return e, nil
}

// Mode returns the resolved TextMode
func (e *Engine) Mode() TextMode {
	return e.mode
}

// Counters returns the running counters
func (e *Engine) Counters() Counters {
	return e.counters
}

// Annotate applies the table entry for rec's name, if any, and reports
// whether the read matched
func (e *Engine) Annotate(rec *sam.Record) (bool, error) {
	edit, ok := e.table[rec.Name]
	if !ok {
		return false, nil
	}
	defer e.reset()

	flag, hasFlag := e.config.Flag, e.config.HasFlag
	if edit.HasFlag {
		flag |= edit.Flag
		hasFlag = true
	}

	if edit.Tag != "" {
		switch e.mode {
		case BareValue:
			e.working[0].Value = tags.InferValue(edit.Tag)
		case IDValuePair:
			// TODO: accept several ';' separated tags per read
			tag, err := tags.Parse(edit.Tag)
			if err != nil {
				return false, fmt.Errorf("read %s: %w", rec.Name, err)
			}
			e.working = append(e.working, tag)
		}
	}

	if len(e.working) == 0 && !hasFlag {
		e.log.Warnf("no tags or flags for read %s", rec.Name)
	}

	if hasFlag {
		rec.Flags |= sam.Flags(flag)
	}
	for _, tag := range e.working {
		fields, err := tags.Upsert(rec.AuxFields, tag)
		if err != nil {
			return false, fmt.Errorf("read %s: %w", rec.Name, err)
		}
		rec.AuxFields = fields
	}

	e.counters.Matched++
	return true, nil
}

// reset restores the working list to its pre-match state
func (e *Engine) reset() {
	e.working = e.working[:e.preset]
	if e.preset == 1 {
		e.working[0] = *e.config.DefaultTag
	}
}

// Run streams every record from r through Annotate into w
func (e *Engine) Run(ctx context.Context, r RecordReader, w RecordWriter) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.counters.Processed > 0 && e.counters.Processed%e.config.LogTick == 0 {
			e.logProgress()
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: failed to read record: %w", errs.ErrIO, err)
		}

		if _, err := e.Annotate(rec); err != nil {
			return err
		}

		if err := w.Write(rec); err != nil {
			return fmt.Errorf("%w: failed to write record %s: %w", errs.ErrIO, rec.Name, err)
		}
		e.counters.Processed++
	}

	if e.log.Enabled(logging.Info) {
		e.logProgress()
	}
	return nil
}

func (e *Engine) logProgress() {
	e.log.Infof("Processed %d reads -- marked %d (~%d%%)",
		e.counters.Processed, e.counters.Matched, e.counters.Percent())
}
