package stats

import (
	"os"

	"github.com/carbocation/pfx"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"

	"github.com/carbocation/variation/array"
)

// EnvPrefix prefixes the environment variables read by LoadSummaryConfig,
// as in VARIATION_MIN_NUM_GENOTYPES.
const EnvPrefix = "VARIATION"

// SummaryConfig holds the thresholds and outputs of Summarize.
type SummaryConfig struct {
	// ChunkSize is the number of variants per deferred chunk; 0 loads the
	// store in memory.
	ChunkSize int `yaml:"chunk_size" envconfig:"CHUNK_SIZE"`
	// MaxAlleles defaults to the ALT columns plus one.
	MaxAlleles           int     `yaml:"max_alleles" envconfig:"MAX_ALLELES"`
	MinNumGenotypes      int     `yaml:"min_num_genotypes" envconfig:"MIN_NUM_GENOTYPES"`
	MinCallDPForHetCall  int     `yaml:"min_call_dp_for_het_call" envconfig:"MIN_CALL_DP_FOR_HET_CALL"`
	PolymorphicThreshold float64 `yaml:"polymorphic_threshold" envconfig:"POLYMORPHIC_THRESHOLD"`
	Bins                 int     `yaml:"bins" envconfig:"BINS"`

	DrawMAF    bool `yaml:"draw_maf" envconfig:"DRAW_MAF"`
	DrawObsHet bool `yaml:"draw_obs_het" envconfig:"DRAW_OBS_HET"`

	SilenceRuntimeWarnings bool `yaml:"silence_runtime_warnings" envconfig:"SILENCE_RUNTIME_WARNINGS"`
	Workers                int  `yaml:"workers" envconfig:"WORKERS"`
}

// DefaultSummaryConfig draws every histogram with DefaultBins bins.
func DefaultSummaryConfig() SummaryConfig {
	return SummaryConfig{
		MinNumGenotypes:      DefaultMinNumGenotypes,
		PolymorphicThreshold: 0.95,
		Bins:                 array.DefaultBins,
		DrawMAF:              true,
		DrawObsHet:           true,
	}
}

// LoadSummaryConfig starts from the defaults, applies the YAML file at path
// when path is not empty, then the environment.
func LoadSummaryConfig(path string) (SummaryConfig, error) {
	cfg := DefaultSummaryConfig()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, pfx.Err(err)
		}
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return cfg, pfx.Err(err)
		}
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, pfx.Err(err)
	}
	return cfg, nil
}

func (cfg SummaryConfig) materializeOptions() []array.Option {
	var opts []array.Option
	if cfg.SilenceRuntimeWarnings {
		opts = append(opts, array.SilenceRuntimeWarnings())
	}
	if cfg.Workers > 0 {
		opts = append(opts, array.WithWorkers(cfg.Workers))
	}
	return opts
}
