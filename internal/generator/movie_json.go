// Package generator provides the batch generators that feed trainers.
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/imishinist/finetune-cli/internal/loader"
	"github.com/imishinist/finetune-cli/internal/models"
	"github.com/imishinist/finetune-cli/internal/movie"
	"github.com/imishinist/finetune-cli/internal/parser"
)

// MovieJSONName is the registered name of MovieJSONGenerator.
const MovieJSONName = "MovieJSONGenerator"

func init() {
	loader.Default.RegisterGenerator(MovieJSONName, func(jsonPath string, movs movie.Cache) (loader.Generator, error) {
		return NewMovieJSONFromFile(jsonPath, movs, movie.NewHDF5Reader())
	})
}

// MovieJSONConfig is the part of a generator artifact this generator reads.
type MovieJSONConfig struct {
	TrainPath       string
	BatchSize       int
	PreFrame        int
	PostFrame       int
	PrePostOmission int
	StartFrame      int
	EndFrame        int
	Randomize       bool
	Seed            int
}

func parseMovieJSONConfig(p models.Params) (MovieJSONConfig, error) {
	var (
		cfg MovieJSONConfig
		err error
	)
	if cfg.TrainPath, err = p.String("train_path"); err != nil {
		return cfg, err
	}
	if cfg.BatchSize, err = p.Int("batch_size"); err != nil {
		return cfg, err
	}
	if cfg.PreFrame, err = p.IntOr("pre_frame", 30); err != nil {
		return cfg, err
	}
	if cfg.PostFrame, err = p.IntOr("post_frame", 30); err != nil {
		return cfg, err
	}
	if cfg.PrePostOmission, err = p.IntOr("pre_post_omission", 0); err != nil {
		return cfg, err
	}
	if cfg.StartFrame, err = p.IntOr("start_frame", 0); err != nil {
		return cfg, err
	}
	if cfg.EndFrame, err = p.IntOr("end_frame", -1); err != nil {
		return cfg, err
	}
	if cfg.Randomize, err = p.BoolOr("randomize", true); err != nil {
		return cfg, err
	}
	if cfg.Seed, err = p.IntOr("seed", 0); err != nil {
		return cfg, err
	}

	if cfg.BatchSize <= 0 {
		return cfg, fmt.Errorf("batch_size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.PreFrame < 0 || cfg.PostFrame < 0 || cfg.PrePostOmission < 0 {
		return cfg, fmt.Errorf("pre_frame, post_frame and pre_post_omission must not be negative")
	}
	if cfg.PreFrame+cfg.PostFrame == 0 {
		return cfg, fmt.Errorf("at least one of pre_frame and post_frame must be positive")
	}
	return cfg, nil
}

type sample struct {
	id    string
	frame int
}

type normalization struct {
	mean, std float64
}

// MovieJSONGenerator serves (neighbouring frames, center frame) samples
// from the movies listed in a data manifest.
type MovieJSONGenerator struct {
	cfg      MovieJSONConfig
	manifest movie.Manifest
	reader   movie.Reader
	samples  []sample

	mu     sync.Mutex
	movies map[string]*movie.Movie
	norms  map[string]normalization
}

func NewMovieJSONFromFile(jsonPath string, movs movie.Cache, reader movie.Reader) (*MovieJSONGenerator, error) {
	params, err := parser.LoadParamsFile(jsonPath)
	if err != nil {
		return nil, err
	}
	gen, err := NewMovieJSON(params, movs, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", jsonPath, err)
	}
	return gen, nil
}

// NewMovieJSON builds the generator. Movies found in movs are used as is;
// the others are read through reader the first time they are needed.
func NewMovieJSON(params models.Params, movs movie.Cache, reader movie.Reader) (*MovieJSONGenerator, error) {
	cfg, err := parseMovieJSONConfig(params)
	if err != nil {
		return nil, err
	}

	manifest, err := movie.LoadManifest(cfg.TrainPath)
	if err != nil {
		return nil, err
	}

	g := &MovieJSONGenerator{
		cfg:      cfg,
		manifest: manifest,
		reader:   reader,
		movies:   make(map[string]*movie.Movie),
		norms:    make(map[string]normalization),
	}
	for id, m := range movs {
		if _, ok := manifest[id]; ok {
			g.movies[id] = m
		}
	}

	for _, id := range manifest.IDs() {
		frames, err := g.sampleFrames(id)
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			g.samples = append(g.samples, sample{id: id, frame: f})
		}
	}
	if len(g.samples) == 0 {
		return nil, fmt.Errorf("no usable frames in %s", cfg.TrainPath)
	}

	if cfg.Randomize {
		rng := rand.New(rand.NewSource(int64(cfg.Seed)))
		rng.Shuffle(len(g.samples), func(i, j int) {
			g.samples[i], g.samples[j] = g.samples[j], g.samples[i]
		})
	}

	return g, nil
}

// sampleFrames lists the center frames for one experiment. Explicit frame
// lists are checked when the batch is built, so the movie is not touched
// here unless the usable range has to be derived from its length.
func (g *MovieJSONGenerator) sampleFrames(id string) ([]int, error) {
	if frames := g.manifest[id].Frames; len(frames) > 0 {
		return frames, nil
	}

	m, err := g.load(id)
	if err != nil {
		return nil, err
	}

	margin := g.cfg.PrePostOmission
	first := g.cfg.PreFrame + margin
	if g.cfg.StartFrame > first {
		first = g.cfg.StartFrame
	}
	last := m.NumFrames() - 1 - g.cfg.PostFrame - margin
	if g.cfg.EndFrame >= 0 && g.cfg.EndFrame < last {
		last = g.cfg.EndFrame
	}

	var frames []int
	for f := first; f <= last; f++ {
		frames = append(frames, f)
	}
	return frames, nil
}

func (g *MovieJSONGenerator) load(id string) (*movie.Movie, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if m, ok := g.movies[id]; ok {
		return m, nil
	}
	entry, ok := g.manifest[id]
	if !ok {
		return nil, fmt.Errorf("experiment %s not in manifest", id)
	}
	if g.reader == nil {
		return nil, fmt.Errorf("experiment %s is not cached and no reader is configured", id)
	}
	m, err := g.reader.ReadMovie(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment %s: %w", id, err)
	}
	g.movies[id] = m
	return m, nil
}

func (g *MovieJSONGenerator) stats(id string, m *movie.Movie) normalization {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n, ok := g.norms[id]; ok {
		return n
	}

	entry := g.manifest[id]
	var n normalization
	if entry.Mean != nil && entry.Std != nil {
		n = normalization{mean: *entry.Mean, std: *entry.Std}
	} else {
		values := make([]float64, len(m.Data))
		for i, v := range m.Data {
			values[i] = float64(v)
		}
		n.mean, n.std = stat.MeanStdDev(values, nil)
	}
	if n.std == 0 {
		n.std = 1
	}
	g.norms[id] = n
	return n
}

func (g *MovieJSONGenerator) Len() int {
	return (len(g.samples) + g.cfg.BatchSize - 1) / g.cfg.BatchSize
}

// Frames is the number of input frames per sample.
func (g *MovieJSONGenerator) Frames() int {
	return g.cfg.PreFrame + g.cfg.PostFrame
}

func (g *MovieJSONGenerator) Batch(ctx context.Context, index int) (*models.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if index < 0 || index >= g.Len() {
		return nil, fmt.Errorf("batch %d out of range [0, %d)", index, g.Len())
	}

	start := index * g.cfg.BatchSize
	end := start + g.cfg.BatchSize
	if end > len(g.samples) {
		end = len(g.samples)
	}

	batch := &models.Batch{Frames: g.Frames()}
	for _, s := range g.samples[start:end] {
		input, target, err := g.build(s)
		if err != nil {
			return nil, err
		}
		batch.Inputs = append(batch.Inputs, input)
		batch.Targets = append(batch.Targets, target)
	}
	return batch, nil
}

func (g *MovieJSONGenerator) build(s sample) ([]float64, []float64, error) {
	m, err := g.load(s.id)
	if err != nil {
		return nil, nil, err
	}
	norm := g.stats(s.id, m)

	margin := g.cfg.PrePostOmission
	first := s.frame - margin - g.cfg.PreFrame
	last := s.frame + margin + g.cfg.PostFrame
	if first < 0 || last >= m.NumFrames() {
		return nil, nil, fmt.Errorf("experiment %s: frame %d needs frames [%d, %d] but movie has %d",
			s.id, s.frame, first, last, m.NumFrames())
	}

	size := m.FrameSize()
	input := make([]float64, 0, g.Frames()*size)
	appendFrame := func(dst []float64, i int) []float64 {
		frame, _ := m.Frame(i)
		for _, v := range frame {
			dst = append(dst, (float64(v)-norm.mean)/norm.std)
		}
		return dst
	}

	for i := first; i < s.frame-margin; i++ {
		input = appendFrame(input, i)
	}
	for i := s.frame + margin + 1; i <= last; i++ {
		input = appendFrame(input, i)
	}
	target := appendFrame(make([]float64, 0, size), s.frame)

	return input, target, nil
}
