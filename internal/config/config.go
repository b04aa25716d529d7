// Package config holds the single typed configuration record every engine
// (graph, retrieval, suggestion, breaker) is constructed with, rather than
// reaching for process-global defaults (see spec §9 "ambient state ->
// explicit configuration").
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full set of tunables for a vault's zettelscript instance.
// Zero-value fields are filled in by Default() before use.
type Config struct {
	// Store
	DBPath string `yaml:"db_path,omitempty"`

	// Circuit breaker (§4.8)
	BreakerMaxFailures int           `yaml:"breaker_max_failures,omitempty"`
	BreakerCooldown    time.Duration `yaml:"breaker_cooldown,omitempty"`

	// Bounded expansion defaults (§4.5.1)
	ExpansionDepth  int     `yaml:"expansion_depth,omitempty"`
	ExpansionBudget int     `yaml:"expansion_budget,omitempty"`
	ExpansionDecay  float64 `yaml:"expansion_decay,omitempty"`

	// K-shortest paths defaults (§4.5.3)
	KShortestOverlapThreshold float64 `yaml:"k_shortest_overlap_threshold,omitempty"`
	KShortestMaxCandidates    int     `yaml:"k_shortest_max_candidates,omitempty"`
	KShortestMaxExtraHops     int     `yaml:"k_shortest_max_extra_hops,omitempty"`

	// Retrieval fusion constants (§6.5)
	RRFK           int     `yaml:"rrf_k,omitempty"`
	LexicalWeight  float64 `yaml:"lexical_weight,omitempty"`
	GraphWeight    float64 `yaml:"graph_weight,omitempty"`
	SemanticWeight float64 `yaml:"semantic_weight,omitempty"`
	LexicalTopM    int     `yaml:"lexical_top_m,omitempty"`
	FusionTopN     int     `yaml:"fusion_top_n,omitempty"`

	// Related-notes hybrid ranker (§4.9, §6.5)
	HybridVectorWeight  float64 `yaml:"hybrid_vector_weight,omitempty"`
	HybridKeywordWeight float64 `yaml:"hybrid_keyword_weight,omitempty"`
	GroupingKStrong     float64 `yaml:"grouping_k_strong,omitempty"`
	SemanticFloor       float64 `yaml:"semantic_floor,omitempty"`
	RelatedMaxResults   int     `yaml:"related_max_results,omitempty"`

	// Embedding provider selection
	EmbeddingProvider string `yaml:"embedding_provider,omitempty"`
	EmbeddingModel    string `yaml:"embedding_model,omitempty"`
	EmbeddingBaseURL  string `yaml:"embedding_base_url,omitempty"`

	// Embedding health thresholds (§6.5)
	EmbeddingHealthOK   float64 `yaml:"embedding_health_ok,omitempty"`
	EmbeddingHealthWarn float64 `yaml:"embedding_health_warn,omitempty"`
}

// Default returns the configuration with every spec-mandated default filled in.
func Default() *Config {
	return &Config{
		DBPath:                    filepath.Join(".zettelscript", "zettelscript.db"),
		BreakerMaxFailures:        3,
		BreakerCooldown:           10 * time.Minute,
		ExpansionDepth:            3,
		ExpansionBudget:           200,
		ExpansionDecay:            0.7,
		KShortestOverlapThreshold: 0.7,
		KShortestMaxCandidates:    50,
		KShortestMaxExtraHops:     4,
		RRFK:                      60,
		LexicalWeight:             0.3,
		GraphWeight:               0.2,
		SemanticWeight:            0.5,
		LexicalTopM:               50,
		FusionTopN:                20,
		HybridVectorWeight:        0.85,
		HybridKeywordWeight:       0.15,
		GroupingKStrong:           1.0,
		SemanticFloor:             0.35,
		RelatedMaxResults:         15,
		EmbeddingProvider:         "auto",
		EmbeddingHealthOK:         0.95,
		EmbeddingHealthWarn:       0.60,
	}
}

// fillDefaults overwrites zero-valued fields of c with d's values.
func (c *Config) fillDefaults(d *Config) {
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.BreakerMaxFailures == 0 {
		c.BreakerMaxFailures = d.BreakerMaxFailures
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = d.BreakerCooldown
	}
	if c.ExpansionDepth == 0 {
		c.ExpansionDepth = d.ExpansionDepth
	}
	if c.ExpansionBudget == 0 {
		c.ExpansionBudget = d.ExpansionBudget
	}
	if c.ExpansionDecay == 0 {
		c.ExpansionDecay = d.ExpansionDecay
	}
	if c.KShortestOverlapThreshold == 0 {
		c.KShortestOverlapThreshold = d.KShortestOverlapThreshold
	}
	if c.KShortestMaxCandidates == 0 {
		c.KShortestMaxCandidates = d.KShortestMaxCandidates
	}
	if c.KShortestMaxExtraHops == 0 {
		c.KShortestMaxExtraHops = d.KShortestMaxExtraHops
	}
	if c.RRFK == 0 {
		c.RRFK = d.RRFK
	}
	if c.LexicalWeight == 0 {
		c.LexicalWeight = d.LexicalWeight
	}
	if c.GraphWeight == 0 {
		c.GraphWeight = d.GraphWeight
	}
	if c.SemanticWeight == 0 {
		c.SemanticWeight = d.SemanticWeight
	}
	if c.LexicalTopM == 0 {
		c.LexicalTopM = d.LexicalTopM
	}
	if c.FusionTopN == 0 {
		c.FusionTopN = d.FusionTopN
	}
	if c.HybridVectorWeight == 0 {
		c.HybridVectorWeight = d.HybridVectorWeight
	}
	if c.HybridKeywordWeight == 0 {
		c.HybridKeywordWeight = d.HybridKeywordWeight
	}
	if c.GroupingKStrong == 0 {
		c.GroupingKStrong = d.GroupingKStrong
	}
	if c.SemanticFloor == 0 {
		c.SemanticFloor = d.SemanticFloor
	}
	if c.RelatedMaxResults == 0 {
		c.RelatedMaxResults = d.RelatedMaxResults
	}
	if c.EmbeddingProvider == "" {
		c.EmbeddingProvider = d.EmbeddingProvider
	}
	if c.EmbeddingHealthOK == 0 {
		c.EmbeddingHealthOK = d.EmbeddingHealthOK
	}
	if c.EmbeddingHealthWarn == 0 {
		c.EmbeddingHealthWarn = d.EmbeddingHealthWarn
	}
}

// Load reads "<vaultDir>/.zettelscript/config.yaml" if present and layers it
// over Default(). A missing file is not an error.
func Load(vaultDir string) (*Config, error) {
	cfg := &Config{}
	path := filepath.Join(vaultDir, ".zettelscript", "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.fillDefaults(Default())
	return cfg, nil
}
