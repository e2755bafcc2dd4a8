package stats

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/carbocation/pfx"
	yaml "gopkg.in/yaml.v2"

	"github.com/carbocation/variation"
	"github.com/carbocation/variation/array"
	"github.com/carbocation/variation/blockstore"
	"github.com/carbocation/variation/filetype"
)

const (
	// SummaryFileName is written by Summarize into the output directory.
	SummaryFileName = "summary.yaml"
	histogramSuffix = ".hist.tsv"

	// defaultMaxAlleles is used when neither the config nor an ALT field says
	// how many alleles a variant may carry.
	defaultMaxAlleles = 2
)

type summaryOptions struct {
	loader variation.Loader
	logger *slog.Logger
}

// SummaryOption customizes Summarize.
type SummaryOption func(*summaryOptions)

// WithLoader replaces the block store loader, allowing other formats.
func WithLoader(l variation.Loader) SummaryOption {
	return func(o *summaryOptions) { o.loader = l }
}

// WithLogger sets the progress logger. The default is slog.Default().
func WithLogger(l *slog.Logger) SummaryOption {
	return func(o *summaryOptions) { o.logger = l }
}

// HistogramSummary is a written histogram: Bins counts over Bins+1 edges.
type HistogramSummary struct {
	File   string    `yaml:"file"`
	Counts []float64 `yaml:"counts"`
	Edges  []float64 `yaml:"edges"`
}

// Summary is the content of summary.yaml.
type Summary struct {
	Path            string                      `yaml:"path"`
	Format          string                      `yaml:"format"`
	NumVariations   int                         `yaml:"num_variations"`
	NumSamples      int                         `yaml:"num_samples"`
	MaxAlleles      int                         `yaml:"max_alleles"`
	MeanMissingRate float64                     `yaml:"mean_missing_rate"`
	Diversities     DiversitySummary            `yaml:"diversities"`
	Histograms      map[string]HistogramSummary `yaml:"histograms,omitempty"`
}

// Summarize loads the matrix at path and writes summary.yaml, plus one TSV per
// histogram, into outDir. Every statistic is materialized in a single pass.
func Summarize(ctx context.Context, path, outDir string, cfg SummaryConfig, opts ...SummaryOption) (*Summary, error) {
	o := summaryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	format, err := filetype.Detect(path)
	if err != nil {
		return nil, err
	}
	if o.loader == nil {
		if format != filetype.FormatBlockStore {
			return nil, fmt.Errorf("%w: %s is %s, only %s can be loaded", variation.ErrUnsupportedFileType, path, format, filetype.FormatBlockStore)
		}
		o.loader = blockstore.Loader
	}

	log := o.logger.With("path", path, "format", format.String())
	log.Info("loading variations", "chunk_size", cfg.ChunkSize)
	v, closer, err := o.loader.Load(ctx, path, cfg.ChunkSize)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	maxAlleles := cfg.MaxAlleles
	if maxAlleles <= 0 {
		maxAlleles, err = MaxAllelesFromAlt(v)
		if errors.Is(err, variation.ErrMissingField) {
			maxAlleles, err = defaultMaxAlleles, nil
			log.Warn("no ALT field, assuming biallelic variants", "max_alleles", maxAlleles)
		}
		if err != nil {
			return nil, err
		}
	}

	stats, draw, err := summaryArrays(v, cfg, maxAlleles)
	if err != nil {
		return nil, err
	}

	log.Info("computing statistics", "backend", v.Backend().Name(), "samples", v.NumSamples())
	materializeOpts := append(cfg.materializeOptions(), array.WithLogger(o.logger))
	computed, err := array.MaterializeMap(ctx, stats, materializeOpts...)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Path:            path,
		Format:          format.String(),
		NumVariations:   computed["missing_rate"].Len(),
		NumSamples:      v.NumSamples(),
		MaxAlleles:      maxAlleles,
		MeanMissingRate: computed["mean_missing_rate"].Float(),
		Diversities: DiversitySummary{
			NumVariableVars:    computed["num_variable_vars"].Int(),
			NumPolymorphicVars: computed["num_polymorphic_vars"].Int(),
			ExpHet:             computed["exp_het"].Float(),
			ObsHet:             computed["obs_het"].Float(),
		},
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, pfx.Err(err)
	}
	for _, name := range draw {
		h := HistogramSummary{
			File:   name + histogramSuffix,
			Counts: computed[name+"_counts"].Float64s(),
			Edges:  computed[name+"_edges"].Float64s(),
		}
		if err := writeHistogram(filepath.Join(outDir, h.File), h); err != nil {
			return nil, err
		}
		if summary.Histograms == nil {
			summary.Histograms = make(map[string]HistogramSummary)
		}
		summary.Histograms[name] = h
	}

	if err := writeSummary(filepath.Join(outDir, SummaryFileName), summary); err != nil {
		return nil, err
	}
	log.Info("summary written", "out_dir", outDir, "variations", summary.NumVariations)
	return summary, nil
}

// summaryArrays builds the graph of every statistic and returns the names of
// the histograms to draw.
func summaryArrays(v *variation.Variations, cfg SummaryConfig, maxAlleles int) (map[string]array.Array, []string, error) {
	be := v.Backend()
	out := make(map[string]array.Array)

	missing, err := CalcMissingGT(v, true)
	if err != nil {
		return nil, nil, err
	}
	out["missing_rate"] = missing
	if out["mean_missing_rate"], err = be.NaNMean(missing, array.AxisAll); err != nil {
		return nil, nil, err
	}

	div, err := CalcDiversities(v, DiversityParams{
		MaxAlleles:           maxAlleles,
		MinNumGenotypes:      cfg.MinNumGenotypes,
		MinCallDPForHetCall:  cfg.MinCallDPForHetCall,
		PolymorphicThreshold: cfg.PolymorphicThreshold,
	})
	if err != nil {
		return nil, nil, err
	}
	for name, a := range div.Arrays() {
		out[name] = a
	}

	hists := map[string]array.Array{"missing_rate": missing}
	if cfg.DrawMAF {
		if hists["maf"], err = CalcMAFByGT(v, maxAlleles, cfg.MinNumGenotypes); err != nil {
			return nil, nil, err
		}
	}
	if cfg.DrawObsHet {
		var hetOpts []HetOption
		if _, ok := v.Get(variation.DP); ok {
			hetOpts = append(hetOpts, MinCallDP(cfg.MinCallDPForHetCall))
		}
		if hists["obs_het"], err = CalcObsHet(v, cfg.MinNumGenotypes, hetOpts...); err != nil {
			return nil, nil, err
		}
	}

	draw := make([]string, 0, len(hists))
	for name, stat := range hists {
		h, err := be.Histogram(stat, array.HistogramOptions{Bins: cfg.Bins, Limits: &array.Limits{Low: 0, High: 1}})
		if err != nil {
			return nil, nil, fmt.Errorf("histogram of %s: %w", name, err)
		}
		out[name+"_counts"] = h.Counts
		out[name+"_edges"] = h.Edges
		draw = append(draw, name)
	}
	sort.Strings(draw)
	return out, draw, nil
}

// writeHistogram writes one row per bin: lower edge, upper edge, count.
func writeHistogram(path string, h HistogramSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := w.Write([]string{"low", "high", "count"}); err != nil {
		return pfx.Err(err)
	}
	for i, count := range h.Counts {
		row := []string{formatFloat(h.Edges[i]), formatFloat(h.Edges[i+1]), formatFloat(count)}
		if err := w.Write(row); err != nil {
			return pfx.Err(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return pfx.Err(err)
	}
	if err := f.Close(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}

func writeSummary(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()
	if err := yaml.NewEncoder(f).Encode(s); err != nil {
		return pfx.Err(err)
	}
	if err := f.Close(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// ReadSummary parses a summary.yaml written by Summarize.
func ReadSummary(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()
	var s Summary
	if err := yaml.NewDecoder(f).Decode(&s); err != nil {
		return nil, pfx.Err(err)
	}
	return &s, nil
}
