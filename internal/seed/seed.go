// Package seed loads directory fixtures from YAML and generates synthetic
// directories for demos and load tests.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	repository "github.com/okian/teamform/internal/adapters/repository"
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/pkg/logger"
)

// ErrInvalidFixtures is returned when a fixture document cannot be parsed.
var ErrInvalidFixtures = errors.New("invalid fixtures")

// Fixtures is a directory snapshot grouped by collection.
type Fixtures struct {
	Profiles     []model.Profile     `yaml:"profiles"`
	Projects     []model.Project     `yaml:"projects"`
	Teams        []model.Team        `yaml:"teams"`
	Testimonials []model.Testimonial `yaml:"testimonials"`
}

// Len returns the number of records across all collections.
func (f *Fixtures) Len() int {
	return len(f.Profiles) + len(f.Projects) + len(f.Teams) + len(f.Testimonials)
}

// Entities returns pointers to every record, profiles first.
func (f *Fixtures) Entities() []model.Entity {
	out := make([]model.Entity, 0, f.Len())
	for i := range f.Profiles {
		out = append(out, &f.Profiles[i])
	}
	for i := range f.Projects {
		out = append(out, &f.Projects[i])
	}
	for i := range f.Teams {
		out = append(out, &f.Teams[i])
	}
	for i := range f.Testimonials {
		out = append(out, &f.Testimonials[i])
	}
	return out
}

// Load decodes a YAML fixture document. Unknown keys are rejected.
func Load(r io.Reader) (*Fixtures, error) {
	var f Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixtures, err)
	}
	return &f, nil
}

// LoadFile reads fixtures from path.
func LoadFile(path string) (*Fixtures, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Result counts what Apply did.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Apply writes every fixture record into store. Records without an ID get
// one; records whose ID already exists are skipped so seeding can be rerun.
func Apply(ctx context.Context, store repository.Store, f *Fixtures, now time.Time) (Result, error) {
	var res Result
	log := logger.Named("seed")
	for _, e := range f.Entities() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		repository.AssignID(e, now)
		err := store.Create(ctx, e)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, repository.ErrConflict):
			res.Skipped++
		default:
			return res, fmt.Errorf("seed %s %q: %w", e.Kind(), e.GetID(), err)
		}
	}
	log.Info(ctx, "fixtures applied",
		logger.Int("created", res.Created),
		logger.Int("skipped", res.Skipped),
	)
	return res, nil
}

// Write encodes fixtures as YAML.
func Write(w io.Writer, f *Fixtures) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode fixtures: %w", err)
	}
	return enc.Close()
}
