package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"mailstage/content"
	"mailstage/index"
	"mailstage/llm"
	"mailstage/stage"
	"mailstage/state"
	"mailstage/wp"
)

// openIndex builds the article index on top of its sqlite cache. Caller closes
// the returned cache.
func openIndex(env *state.LocalEnv) (*index.Cache, *index.Index, error) {
	cache, err := index.OpenCache(env.Cfg.Index.CachePath)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open article cache: %w", err)
	}
	ix, err := index.New(cache, env.Cfg.WordPress.BaseURL, index.Options{
		FeedURL: env.Cfg.Index.FeedURL,
		MaxAge:  time.Duration(env.Cfg.Index.MaxAgeHours) * time.Hour,
	}, env.Log)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}
	return cache, ix, nil
}

func runStage(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() != 1 {
		return fmt.Errorf("single INPUT argument expected, got %d", cmd.Args().Len())
	}

	variant, err := content.ParseTemplateVariant(cmd.String("template"))
	if err != nil {
		return err
	}

	cache, ix, err := openIndex(env)
	if err != nil {
		return err
	}
	defer cache.Close()

	wpClient := wp.NewClient(
		env.Cfg.WordPress.BaseURL,
		env.Cfg.WordPress.Username,
		string(env.Cfg.WordPress.AppPassword),
		&http.Client{Timeout: time.Duration(env.Cfg.WordPress.TimeoutSeconds) * time.Second},
		env.Log)

	llmClient, err := llm.New(
		env.Cfg.LLM.Endpoint,
		env.Cfg.LLM.Model,
		string(env.Cfg.LLM.APIKey),
		env.Cfg.LLM.MaxTokens,
		&http.Client{Timeout: time.Duration(env.Cfg.LLM.TimeoutSeconds) * time.Second},
		env.Log)
	if err != nil {
		return err
	}

	res, err := stage.New(env.Cfg, ix, wpClient, llmClient, env.Log).Run(ctx, stage.Options{
		Variant:     variant,
		Input:       cmd.Args().First(),
		SecondInput: cmd.String("second"),
		IntroOption: int(cmd.Int("intro-option")),
		Overwrite:   env.Overwrite,
		DryRun:      env.DryRun,
	})
	if err != nil {
		return err
	}

	if env.DryRun {
		fmt.Fprintf(os.Stdout, "dry run %s: staged %q, nothing written\n", res.RunID[:8], res.Fields.Title)
		return nil
	}
	fmt.Fprintf(os.Stdout, "%s\n", res.OutputPath)
	return nil
}

func runSuggest(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return fmt.Errorf("at least one keyword expected")
	}
	keywords := strings.Join(cmd.Args().Slice(), " ")

	var tags []string
	for _, t := range strings.Split(cmd.String("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	cache, ix, err := openIndex(env)
	if err != nil {
		return err
	}
	defer cache.Close()

	suggestions, err := ix.Suggest(ctx, tags, keywords, cmd.String("exclude"), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		fmt.Fprintln(os.Stdout, "no matching articles")
		return nil
	}
	for i, s := range suggestions {
		fmt.Fprintf(os.Stdout, "%d. %s\n   %s\n", i+1, s.Article.Title, s.Article.URL)
		if s.Article.Description != "" {
			fmt.Fprintf(os.Stdout, "   %s\n", s.Article.Description)
		}
	}
	return nil
}

func runRefreshIndex(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)

	cache, ix, err := openIndex(env)
	if err != nil {
		return err
	}
	defer cache.Close()

	if cmd.Bool("info") {
		info, err := ix.Info()
		if err != nil {
			return err
		}
		if !info.Cached {
			fmt.Fprintln(os.Stdout, "index cache is empty")
			return nil
		}
		status := "fresh"
		if info.Stale {
			status = "stale"
		}
		fmt.Fprintf(os.Stdout, "%d articles, fetched %s ago (%s)\n", info.ArticleCount, info.Age.Round(time.Second), status)
		return nil
	}

	count, err := ix.Refresh(ctx)
	if err != nil {
		return err
	}
	env.Log.Info("Index refreshed", zap.Int("articles", count))
	fmt.Fprintf(os.Stdout, "%d articles indexed\n", count)
	return nil
}
