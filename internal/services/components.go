package services

import (
	"fmt"

	"claimcheck/internal/agents"
	"claimcheck/internal/clients"
	"claimcheck/internal/config"
	"claimcheck/internal/evidence"
	"claimcheck/internal/logger"
	"claimcheck/internal/metrics"
	"claimcheck/internal/pipeline"

	"golang.org/x/time/rate"
)

// Components are the pipeline parts built from configuration
type Components struct {
	Orchestrator *pipeline.Orchestrator
	Source       evidence.Source
	Verifier     agents.ClaimVerifier
	close        func() error
}

// Close releases the evidence cache
func (c *Components) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// BuildComponents wires the LLM client, agents, evidence source and orchestrator for cfg
func BuildComponents(cfg *config.Config) (*Components, error) {
	llm, err := clients.NewLLMClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	evidenceCache, closeCache, err := evidence.NewCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open evidence cache: %w", err)
	}

	source, err := evidence.NewSource(cfg, evidenceCache)
	if err != nil {
		_ = closeCache()
		return nil, err
	}

	extractor := agents.NewExtractorAgent(llm, cfg.MaxInputChars)
	verifier := agents.NewVerifierAgent(llm, cfg.EvidenceMaxChars)

	opts := []pipeline.Option{
		pipeline.WithConcurrency(cfg.MaxConcurrency),
		pipeline.WithMetrics(metrics.NewRecorder()),
	}
	if cfg.ClaimsPerSecond > 0 {
		opts = append(opts, pipeline.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.ClaimsPerSecond), 1)))
	}

	logger.Log.WithFields(map[string]interface{}{
		"llm_provider":      llm.Provider(),
		"evidence_provider": source.Name(),
		"max_concurrency":   cfg.MaxConcurrency,
		"claims_per_second": cfg.ClaimsPerSecond,
		"persistent_cache":  cfg.CacheDatabaseURL != "",
	}).Info("Pipeline components initialized")

	return &Components{
		Orchestrator: pipeline.New(extractor, source, verifier, opts...),
		Source:       source,
		Verifier:     verifier,
		close:        closeCache,
	}, nil
}
