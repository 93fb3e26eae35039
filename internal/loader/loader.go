// Package loader resolves generator and trainer implementations from the
// JSON artifacts the finetune command writes. Each artifact carries a
// "type" discriminator and the registered "name" of the implementation.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/movie"
	"github.com/imishinist/finetune-cli/internal/parser"
)

var (
	ErrUnknownComponent = errors.New("unknown component")
	ErrTypeMismatch     = errors.New("component type mismatch")
)

// Generator yields batches for one pass through its samples.
type Generator interface {
	// Len is the number of batches in one pass.
	Len() int
	Batch(ctx context.Context, index int) (*models.Batch, error)
}

type Trainer interface {
	Run(ctx context.Context, train, test Generator) (*models.History, error)
}

// GeneratorFactory builds a generator from its artifact. movs is the
// preloaded movie cache and may be nil.
type GeneratorFactory func(jsonPath string, movs movie.Cache) (Generator, error)

// TrainerFactory builds a trainer from its artifact. logger is the run's logger.
type TrainerFactory func(jsonPath string, logger *slog.Logger) (Trainer, error)

type Registry struct {
	mu         sync.RWMutex
	generators map[string]GeneratorFactory
	trainers   map[string]TrainerFactory
}

func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[string]GeneratorFactory),
		trainers:   make(map[string]TrainerFactory),
	}
}

// Default is filled by the init functions of the implementation packages.
var Default = NewRegistry()

func (r *Registry) RegisterGenerator(name string, factory GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.generators[name]; dup {
		panic("loader: generator registered twice: " + name)
	}
	r.generators[name] = factory
}

func (r *Registry) RegisterTrainer(name string, factory TrainerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.trainers[name]; dup {
		panic("loader: trainer registered twice: " + name)
	}
	r.trainers[name] = factory
}

// FindGenerator reads the artifact at jsonPath and returns the factory
// registered under its name.
func (r *Registry) FindGenerator(jsonPath string) (GeneratorFactory, error) {
	name, err := r.resolve(jsonPath, models.TypeGenerator)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: generator %q", ErrUnknownComponent, name)
	}
	return factory, nil
}

func (r *Registry) FindTrainer(jsonPath string) (TrainerFactory, error) {
	name, err := r.resolve(jsonPath, models.TypeTrainer)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.trainers[name]
	if !ok {
		return nil, fmt.Errorf("%w: trainer %q", ErrUnknownComponent, name)
	}
	return factory, nil
}

// Generators lists the registered generator names in sorted order.
func (r *Registry) Generators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.generators))
	for name := range r.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Trainers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.trainers))
	for name := range r.trainers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) resolve(jsonPath, wantType string) (string, error) {
	params, err := parser.LoadParamsFile(jsonPath)
	if err != nil {
		return "", err
	}

	typ, err := params.String("type")
	if err != nil {
		return "", fmt.Errorf("%s: %w", jsonPath, err)
	}
	if typ != wantType {
		return "", fmt.Errorf("%w: %s is a %s, want %s", ErrTypeMismatch, jsonPath, typ, wantType)
	}

	name, err := params.String("name")
	if err != nil {
		return "", fmt.Errorf("%s: %w", jsonPath, err)
	}
	return name, nil
}
