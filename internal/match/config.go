package match

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/topbeat/reconcile-cli/internal/model"
)

// TierConfig defines one waterfall tier. Exact tiers carry a fixed
// Confidence; fuzzy tiers carry a Threshold and report the similarity score
// as confidence.
type TierConfig struct {
	Method     model.MatchMethod `yaml:"method"`
	Confidence float64           `yaml:"confidence,omitempty"`
	Threshold  float64           `yaml:"threshold,omitempty"`
}

// Config is the matcher configuration. Tier order is significant: tiers are
// attempted strictly top to bottom and the first qualifying tier wins.
type Config struct {
	Tiers []TierConfig `yaml:"tiers"`
}

// DefaultConfig returns the stock waterfall: exact email, exact phone,
// fuzzy email, exact name, fuzzy name. The phone/fuzzy-email ordering is
// deliberately data, not code; swap tiers in the config file to change it.
func DefaultConfig() *Config {
	return &Config{
		Tiers: []TierConfig{
			{Method: model.MatchExactEmail, Confidence: 1.0},
			{Method: model.MatchExactPhone, Confidence: 0.95},
			{Method: model.MatchFuzzyEmail, Threshold: 0.85},
			{Method: model.MatchExactName, Confidence: 0.70},
			{Method: model.MatchFuzzyName, Threshold: 0.60},
		},
	}
}

// LoadConfig reads a matcher config from a YAML file. The file has a
// top-level "matcher" key.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "match: read config %s", path)
	}

	var wrapper struct {
		Matcher Config `yaml:"matcher"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "match: parse config")
	}

	cfg := &wrapper.Matcher
	if len(cfg.Tiers) == 0 {
		return DefaultConfig(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every tier names a known method and carries a usable
// confidence or threshold.
func (c *Config) Validate() error {
	for i, tier := range c.Tiers {
		switch tier.Method {
		case model.MatchExactEmail, model.MatchExactPhone, model.MatchExactName:
			if tier.Confidence <= 0 || tier.Confidence > 1 {
				return eris.Errorf("match: tier %d (%s): confidence must be in (0,1]", i, tier.Method)
			}
		case model.MatchFuzzyEmail, model.MatchFuzzyName:
			if tier.Threshold <= 0 || tier.Threshold > 1 {
				return eris.Errorf("match: tier %d (%s): threshold must be in (0,1]", i, tier.Method)
			}
		default:
			return eris.Errorf("match: tier %d: unknown method %q", i, tier.Method)
		}
	}
	return nil
}
