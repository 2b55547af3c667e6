package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ladle/internal"
	"github.com/starford/ladle/internal/semver"
	pkgconfig "github.com/starford/ladle/pkg/config"
)

const defaultConfigFile = "config/config.example.yaml"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(cmd.String("config"), defaultConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

func bump(_ context.Context, cmd *cli.Command) error {
	current := cmd.Args().First()
	if current == "" {
		return fmt.Errorf("usage: bump --action <action> [--intent <intent>] <version>")
	}
	b := semver.Classify(cmd.String("action"), cmd.String("intent"))
	if s := cmd.String("bump"); s != "" {
		parsed, ok := semver.ParseBump(s)
		if !ok {
			return fmt.Errorf("unknown bump %q (want major, minor or patch)", s)
		}
		b = parsed
	}
	fmt.Println(semver.Apply(current, b))
	return nil
}

func main() {
	// Root flags are inherited by the subcommands.
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:   "ladle",
		Usage:  "Versioned recipe library with LLM import, voice edits and cooking guidance",
		Action: serve,
		Flags:  []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the MCP tools on stdin/stdout",
				Action: serveMCP,
			},
			{
				Name:      "bump",
				Usage:     "Print the next semantic version for a modification",
				ArgsUsage: "<version>",
				Action:    bump,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "action", Usage: "Modification action (e.g. scale_recipe)"},
					&cli.StringFlag{Name: "intent", Usage: "Modification intent (e.g. ADD)"},
					&cli.StringFlag{Name: "bump", Usage: "Explicit bump (major, minor, patch); overrides action/intent"},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
