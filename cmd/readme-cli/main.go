package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"github.com/vrsandeep/readme-console/internal/archive"
	"github.com/vrsandeep/readme-console/internal/config"
	"github.com/vrsandeep/readme-console/internal/console"
	"github.com/vrsandeep/readme-console/internal/core"
	"github.com/vrsandeep/readme-console/internal/models"
	"github.com/vrsandeep/readme-console/internal/render"
	"github.com/vrsandeep/readme-console/internal/util"
)

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file    string
	dir     string
	repo    string
	out     string
	version bool
}

// run performs one submission cycle and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("readme-cli", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts options
	flags.StringVar(&opts.file, "file", "", "ZIP archive of the project to upload")
	flags.StringVar(&opts.dir, "dir", "", "project directory to zip and upload")
	flags.StringVar(&opts.repo, "repo", "", "GitHub repository URL")
	flags.StringVar(&opts.out, "out", ".", "directory README.md is written to")
	flags.String("base-url", "", "address of the README generation service")
	flags.BoolVar(&opts.version, "version", false, "print the version and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	if opts.version {
		fmt.Fprintln(stdout, core.Version)
		return 0
	}
	if opts.file != "" && opts.dir != "" {
		fmt.Fprintf(stderr, "%v\n", errConflictingSources)
		return 2
	}

	loader := config.NewLoader()
	if err := loader.Viper().BindPFlag("backend.base_url", flags.Lookup("base-url")); err != nil {
		fmt.Fprintf(stderr, "Failed to bind flags: %v\n", err)
		return 2
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	if err := util.ValidateOutputDir(opts.out); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	in, err := buildInput(ctx, opts)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	app, err := core.NewWithConfig(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Fatal error during application setup: %v\n", err)
		return 1
	}
	defer app.Close()

	printed := 0
	c := app.NewConsole("cli", console.WithOnChange(func(s console.Snapshot) {
		for ; printed < len(s.Log); printed++ {
			fmt.Fprintln(stdout, s.Log[printed])
		}
	}))
	defer c.Close()

	fmt.Fprintln(stdout, console.PlaceholderLine)
	snap := c.Submit(ctx, in)
	if snap.Error != "" {
		fmt.Fprintf(stderr, "❌ %s\n", snap.Error)
		return 1
	}

	artifact, err := c.Download()
	if errors.Is(err, console.ErrNoDocument) {
		fmt.Fprintln(stdout, "The service returned an empty README; nothing was written.")
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	path, err := console.SaveArtifact(opts.out, artifact)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to save README: %v\n", err)
		return 1
	}

	if html, err := render.Markdown(snap.Readme); err == nil {
		if title := render.Title(html); title != "" {
			fmt.Fprintf(stdout, "📄 %s\n", title)
		}
	}
	fmt.Fprintf(stdout, "Saved %s\n", path)
	return 0
}

var errConflictingSources = errors.New("use either --file or --dir, not both")

func buildInput(ctx context.Context, opts options) (models.SubmissionInput, error) {
	in := models.SubmissionInput{RepoURL: opts.repo}

	switch {
	case opts.file != "" && opts.dir != "":
		return in, errConflictingSources
	case opts.file != "":
		data, err := os.ReadFile(opts.file)
		if err != nil {
			return in, fmt.Errorf("failed to read archive: %w", err)
		}
		in.File = &models.Upload{Name: filepath.Base(opts.file), Data: data}
	case opts.dir != "":
		upload, err := archive.PackDir(ctx, opts.dir)
		if err != nil {
			return in, fmt.Errorf("failed to pack directory: %w", err)
		}
		in.File = &upload
	}
	return in, nil
}
