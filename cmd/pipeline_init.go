package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eventscout/internal/history"
	"github.com/sells-group/eventscout/internal/pipeline"
	"github.com/sells-group/eventscout/internal/queries"
	"github.com/sells-group/eventscout/internal/sink"
	"github.com/sells-group/eventscout/pkg/classifier"
	"github.com/sells-group/eventscout/pkg/registry"
	"github.com/sells-group/eventscout/pkg/search"
)

// pipelineEnv bundles the pipeline and the resources it owns.
type pipelineEnv struct {
	pipeline *pipeline.Pipeline
	history  history.Store
}

func (e *pipelineEnv) Close() {
	if e.history != nil {
		_ = e.history.Close()
	}
}

// initPipeline wires all collaborators from config. History state is
// loaded here; a corrupt history file aborts before any external call.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	hist, err := history.Open(ctx, cfg.History)
	if err != nil {
		return nil, eris.Wrap(err, "init: open history")
	}

	gen := queries.NewTemplateGenerator(cfg.Pipeline.Periods, cfg.Pipeline.GeoTags, cfg.Pipeline.MaxQueries)

	var searchOpts []search.Option
	if cfg.Search.BaseURL != "" {
		searchOpts = append(searchOpts, search.WithBaseURL(cfg.Search.BaseURL))
	}
	searchClient := search.NewClient(cfg.Search.Key, searchOpts...)

	classifierClient := classifier.NewClient(cfg.Classifier.Key, classifier.Config{
		Model:     cfg.Classifier.Model,
		MaxTokens: int64(cfg.Classifier.MaxTokens),
	})

	var registryOpts []registry.Option
	if cfg.Registry.FallbackURL != "" {
		registryOpts = append(registryOpts, registry.WithFallbackURL(cfg.Registry.FallbackURL))
	}
	registryClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Key, registryOpts...)

	out := sink.NewXLSX(cfg.Sink.Path)

	p, err := pipeline.New(cfg, hist, gen, searchClient, classifierClient, registryClient, out)
	if err != nil {
		hist.Close()
		return nil, eris.Wrap(err, "init: build pipeline")
	}

	return &pipelineEnv{pipeline: p, history: hist}, nil
}
