package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/moku/pkg/adapters/filesink"
	"github.com/user/moku/pkg/adapters/ggrenderer"
	"github.com/user/moku/pkg/adapters/imageloader"
	"github.com/user/moku/pkg/adapters/localfetcher"
	"github.com/user/moku/pkg/adapters/logger"
	"github.com/user/moku/pkg/adapters/nullsink"
	"github.com/user/moku/pkg/adapters/osfilesystem"
	"github.com/user/moku/pkg/adapters/suwayomi"
	"github.com/user/moku/pkg/config"
	"github.com/user/moku/pkg/moku"
	"github.com/user/moku/pkg/pipeline"
	"github.com/user/moku/pkg/ports"
	"github.com/user/moku/pkg/session"
	"github.com/user/moku/pkg/summarizer"
)

var (
	errNoSource = errors.New("either --manga or --local is required")
	errNoServer = errors.New("server URL is required (--server, MOKU_SERVER or config file)")
)

// env is what every command needs: merged settings, a logger and the file system.
type env struct {
	cfg     config.Config
	session session.Config
	preset  string
	log     ports.Logger
	fs      *osfilesystem.FileSystem
}

// newEnv loads the config file, applies env vars and flags on top and
// creates the logger. When logOut is non-nil every log line goes there.
func newEnv(c *cli.Context, logOut io.Writer) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	level := ports.ParseLogLevel(cfg.LogLevel)
	var log ports.Logger
	switch {
	case c.Bool("quiet"):
		log = logger.NewNoop()
	case logOut != nil:
		log = logger.NewWriter(level, logOut)
	default:
		log = logger.NewConsole(level)
	}

	sessionCfg, err := buildSessionConfig(c, cfg)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:     cfg,
		session: sessionCfg,
		preset:  c.String("preset"),
		log:     log,
		fs:      osfilesystem.New(),
	}, nil
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.Path("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if c.IsSet("server") {
		cfg.Server = c.String("server")
	}
	if c.IsSet("username") {
		cfg.Username = c.String("username")
	}
	if c.IsSet("password") {
		cfg.Password = c.String("password")
	}
	if c.IsSet("chrome-path") {
		cfg.ChromePath = c.String("chrome-path")
	}
	if c.IsSet("headless") {
		cfg.Headless = c.Bool("headless")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.Path("debug-dir")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	return cfg, nil
}

// buildSessionConfig layers the preset and presentation flags over the file settings.
func buildSessionConfig(c *cli.Context, cfg config.Config) (session.Config, error) {
	builder := moku.NewConfigBuilderFrom(cfg.ToSessionConfig())

	if c.IsSet("preset") {
		preset, err := moku.ParsePreset(c.String("preset"))
		if err != nil {
			return session.Config{}, err
		}
		builder.WithPreset(preset)
	}
	if c.IsSet("style") {
		builder.WithStyle(pipeline.ParseStyle(c.String("style")))
	}
	if c.IsSet("direction") {
		builder.WithDirection(pipeline.ParseDirection(c.String("direction")))
	}
	if c.IsSet("offset-first-spread") {
		builder.WithOffsetFirstSpread(c.Bool("offset-first-spread"))
	}

	return builder.Build(), nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func (e *env) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			e.log.Warn(l10n.T("Interrupted, shutting down..."))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// source is an ordered chapter list and the fetcher serving it.
type source struct {
	fetcher  ports.RemoteFetcher
	chapters []pipeline.Chapter
	label    string
}

func (e *env) openSource(ctx context.Context, c *cli.Context) (*source, error) {
	if dir := c.Path("local"); dir != "" {
		fetcher := localfetcher.New(dir, e.fs, e.log)
		chapters, err := fetcher.Chapters()
		if err != nil {
			return nil, err
		}
		e.log.Info("Found %d chapters in %s", len(chapters), dir)
		return &source{fetcher: fetcher, chapters: chapters, label: dir}, nil
	}

	if !c.IsSet("manga") {
		return nil, errNoSource
	}
	if e.cfg.Server == "" {
		return nil, errNoServer
	}
	client, err := suwayomi.New(suwayomi.Options{
		Server:   e.cfg.Server,
		Username: e.cfg.Username,
		Password: e.cfg.Password,
		Attempts: uint(e.cfg.RetryAttempts),
		Delay:    e.cfg.RetryDelay(),
		Timeout:  e.cfg.RequestTimeout(),
	}, e.log)
	if err != nil {
		return nil, err
	}
	chapters, err := client.Chapters(ctx, c.Int("manga"))
	if err != nil {
		return nil, err
	}
	e.log.Info("Found %d chapters in %s", len(chapters), e.cfg.Server)
	return &source{fetcher: client, chapters: chapters, label: e.cfg.Server}, nil
}

// startChapter returns the chapter selected with --chapter, or the first one.
func (s *source) startChapter(c *cli.Context) (pipeline.Chapter, error) {
	if len(s.chapters) == 0 {
		return pipeline.Chapter{}, pipeline.ErrNoChapters
	}
	id := c.String("chapter")
	if id == "" {
		return s.chapters[0], nil
	}
	idx := pipeline.IndexOf(s.chapters, pipeline.ChapterID(id))
	if idx < 0 {
		return pipeline.Chapter{}, fmt.Errorf("chapter %s: %w", id, pipeline.ErrUnknownChapter)
	}
	return s.chapters[idx], nil
}

func (e *env) newDecoder() *imageloader.Loader {
	return imageloader.New(imageloader.Options{
		Client:   &http.Client{Timeout: e.cfg.RequestTimeout()},
		Username: e.cfg.Username,
		Password: e.cfg.Password,
	}, e.log)
}

// newSink returns a file sink under the debug directory when debugging.
func (e *env) newSink() (ports.DebugSink, error) {
	if !e.cfg.Debug {
		return nullsink.New(), nil
	}
	if err := e.fs.MkdirAll(e.cfg.DebugDir); err != nil {
		return nil, fmt.Errorf("create debug directory: %w", err)
	}
	return filesink.New(e.cfg.DebugDir, e.fs, ggrenderer.New()), nil
}

// writeSummary writes the session report when --summary is given.
func (e *env) writeSummary(c *cli.Context, s *session.Session, src *source) {
	path := c.Path("summary")
	if path == "" {
		return
	}
	summary := summarizer.NewBuilder().
		WithSession(s.Summary()).
		WithSource(src.label).
		WithPreset(e.preset).
		Build()
	writer := summarizer.NewWriter(summarizer.NewMarkdownFormatter(), e.fs)
	if err := writer.Write(path, summary); err != nil {
		e.log.Warn("Failed to write summary: %s", err)
		return
	}
	e.log.Info("Summary written to %s", path)
}

func summaryFlag() cli.Flag {
	return &cli.PathFlag{Name: "summary", Usage: l10n.T("Write a session summary to file (Markdown format)")}
}
