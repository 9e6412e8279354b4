package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource []byte

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid config: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid config (%d issues): %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

// schema holds the compiled #Config definition. CUE values from different
// contexts cannot be unified, so the context is kept with it.
var schema struct {
	once sync.Once
	mu   sync.Mutex
	ctx  *cue.Context
	def  cue.Value
	err  error
}

func loadSchema() error {
	schema.once.Do(func() {
		schema.ctx = cuecontext.New()
		v := schema.ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schema.err = fmt.Errorf("compile config schema: %w", err)
			return
		}
		schema.def = v.LookupPath(cue.ParsePath("#Config"))
		if !schema.def.Exists() {
			schema.err = fmt.Errorf("config schema has no #Config definition")
		}
	})
	return schema.err
}

// Validate checks cfg against the schema and the cross-field rules.
func Validate(cfg Config) error {
	if err := loadSchema(); err != nil {
		return err
	}

	schema.mu.Lock()
	v := schema.ctx.Encode(cfg)
	err := schema.def.Unify(v).Validate(cue.Concrete(true))
	schema.mu.Unlock()

	var issues []string
	if err != nil {
		for _, e := range cueerrors.Errors(err) {
			issues = append(issues, e.Error())
		}
	}

	// The horizon must cover at least one wake-up period, or a beat can
	// fall between two polls without being queued.
	if cfg.Timing.ScheduleAhead*1000 <= cfg.Timing.LookaheadMS {
		issues = append(issues, fmt.Sprintf(
			"timing.schedule_ahead (%gs) must exceed timing.lookahead_ms (%gms)",
			cfg.Timing.ScheduleAhead, cfg.Timing.LookaheadMS))
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
