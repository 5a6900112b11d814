// Package synth turns generation instructions into concrete JSON values.
package synth

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/takumiyoshikawa/jsonsynth/internal/document"
	"github.com/takumiyoshikawa/jsonsynth/internal/skeleton"
)

const (
	defaultItemSpread = 4
	maxAttempts       = 25
)

// anchor is the reference "now" of seeded runs, so dates repeat too.
var anchor = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// Options configure a Synthesizer.
type Options struct {
	// Seed makes a run repeatable. Zero picks a random seed.
	Seed uint64
	// ItemSpread is how far above minItems an unbounded array may grow.
	ItemSpread int
	// Now anchors relative date ranges. Zero means time.Now for unseeded
	// runs and a fixed date for seeded ones.
	Now time.Time
}

// Synthesizer owns the random source of one generation run. It is not safe
// for concurrent use.
type Synthesizer struct {
	faker  *gofakeit.Faker
	spread int
	now    time.Time
}

func New(opts Options) *Synthesizer {
	s := &Synthesizer{
		faker:  gofakeit.New(opts.Seed),
		spread: opts.ItemSpread,
		now:    opts.Now,
	}
	if s.spread <= 0 {
		s.spread = defaultItemSpread
	}
	if s.now.IsZero() {
		if opts.Seed != 0 {
			s.now = anchor
		} else {
			s.now = time.Now().UTC()
		}
	}
	return s
}

// Generate produces the value for in and everything below it.
func (s *Synthesizer) Generate(in *skeleton.Instruction) (any, error) {
	switch in.Kind {
	case skeleton.KindObject:
		obj := document.NewObject()
		for _, f := range in.Fields {
			v, err := s.Generate(f)
			if err != nil {
				return nil, err
			}
			obj.Set(f.Key, v)
		}
		return obj, nil
	case skeleton.KindArray:
		return s.array(in)
	case skeleton.KindScalar:
		return s.scalar(in)
	default:
		return nil, fmt.Errorf("instruction at %s has unknown kind %v", in.Path, in.Kind)
	}
}

func (s *Synthesizer) array(in *skeleton.Instruction) (any, error) {
	n, err := s.itemCount(in)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, n)
	if n == 0 || in.Item == nil {
		return out, nil
	}
	for i := 0; i < n; i++ {
		v, err := s.Generate(in.Item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Synthesizer) itemCount(in *skeleton.Instruction) (int, error) {
	c := in.Constraints
	if c.MinItems != nil && c.MaxItems != nil && *c.MinItems > *c.MaxItems {
		return 0, unsatisfiable(in.Path, "minItems %d > maxItems %d", *c.MinItems, *c.MaxItems)
	}
	if c.Count != nil {
		n := *c.Count
		if c.MinItems != nil && n < *c.MinItems {
			return 0, unsatisfiable(in.Path, "count %d < minItems %d", n, *c.MinItems)
		}
		if c.MaxItems != nil && n > *c.MaxItems {
			return 0, unsatisfiable(in.Path, "count %d > maxItems %d", n, *c.MaxItems)
		}
		return n, nil
	}
	if c.MinItems == nil && c.MaxItems == nil {
		return 1, nil
	}

	lo := 1
	if c.MinItems != nil {
		lo = *c.MinItems
	}
	hi := lo + s.spread
	if c.MaxItems != nil {
		hi = *c.MaxItems
		if c.MinItems == nil && lo > hi {
			lo = hi
		}
	}
	return s.faker.IntRange(lo, hi), nil
}
