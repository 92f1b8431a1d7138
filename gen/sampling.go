// Package gen provides the uniform-sampling generator: the simplest driver
// that exercises the batched request/future pipeline end to end. Same seed,
// same sample sequence.
package gen

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/ensemble-sim/ensemble-sim/comms"
)

// SamplerConfig groups sampling parameters.
type SamplerConfig struct {
	Schema    comms.Schema // negotiated input record schema
	Lower     []float64    // per-field lower bounds (len == len(Schema))
	Upper     []float64    // per-field upper bounds
	Seed      int64        // RNG seed
	BatchSize int          // records per request
	Batches   int          // number of requests to issue
}

func (c SamplerConfig) validate() error {
	if len(c.Schema) == 0 {
		return fmt.Errorf("sampler: schema must name at least one field")
	}
	if len(c.Lower) != len(c.Schema) || len(c.Upper) != len(c.Schema) {
		return fmt.Errorf("sampler: bounds must match schema arity %d", len(c.Schema))
	}
	for i := range c.Lower {
		if c.Lower[i] > c.Upper[i] {
			return fmt.Errorf("sampler: field %q: lower bound %v above upper bound %v",
				c.Schema[i], c.Lower[i], c.Upper[i])
		}
	}
	if c.BatchSize <= 0 || c.Batches <= 0 {
		return fmt.Errorf("sampler: batches and batch size must be > 0")
	}
	return nil
}

// Sampler draws uniform records within per-field bounds.
type Sampler struct {
	cfg SamplerConfig
	rng *rand.Rand
}

// NewSampler validates the config and seeds the sampler.
func NewSampler(cfg SamplerConfig) (*Sampler, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Sampler{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}, nil
}

// Draw produces one batch of input records.
func (s *Sampler) Draw() []comms.Record {
	batch := make([]comms.Record, 0, s.cfg.BatchSize)
	for i := 0; i < s.cfg.BatchSize; i++ {
		rec := make(comms.Record, len(s.cfg.Schema))
		for j, name := range s.cfg.Schema {
			lo, hi := s.cfg.Lower[j], s.cfg.Upper[j]
			rec[name] = lo + s.rng.Float64()*(hi-lo)
		}
		batch = append(batch, rec)
	}
	return batch
}

// Run submits cfg.Batches batches through eval, draining each with WaitAll,
// and returns every Future in submission order.
func (s *Sampler) Run(eval *comms.CommEval) ([]*comms.Future, error) {
	var all []*comms.Future
	for b := 0; b < s.cfg.Batches; b++ {
		futures, err := eval.Request(s.Draw())
		if err != nil {
			return all, fmt.Errorf("batch %d: %w", b, err)
		}
		logrus.Infof("<< batch %d: sims [%d, %d)", b, futures[0].ID(), futures[0].ID()+len(futures))
		if err := eval.WaitAll(); err != nil {
			return all, fmt.Errorf("batch %d: %w", b, err)
		}
		all = append(all, futures...)
	}
	return all, nil
}
