package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Cartasiane/Keson-spectral-improver/logging"
	"github.com/Cartasiane/Keson-spectral-improver/quality"
	"github.com/Cartasiane/Keson-spectral-improver/transcode"
)

var errNoInput = errors.New("expected at least one audio file argument")

func main() {
	cmd := &cli.Command{
		Name:      "keson-analyze",
		Usage:     "Estimate audio source authenticity from its spectral ceiling and dynamic range",
		ArgsUsage: "<file> [file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "ffmpeg",
				Usage: "Path to the ffmpeg binary",
				Value: "ffmpeg",
			},
			&cli.StringFlag{
				Name:  "ffprobe",
				Usage: "Path to the ffprobe binary",
				Value: "ffprobe",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout per external decode/probe invocation",
				Value: 60 * time.Second,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Emit one JSON report per file instead of summary lines",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logging.Error(err, "analysis failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return errNoInput
	}

	if cmd.Bool("verbose") {
		logging.SetLevel(logging.DebugLevel)
	}

	config := &transcode.DecoderConfig{
		FFmpegPath:  cmd.String("ffmpeg"),
		FFprobePath: cmd.String("ffprobe"),
		Timeout:     cmd.Duration("timeout"),
	}

	analyzer := quality.NewAnalyzer(config)

	var failed int
	for _, filename := range cmd.Args().Slice() {
		report, err := analyzer.AnalyzeFile(ctx, filename)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filename, err)
			failed++
			continue
		}

		if cmd.Bool("json") {
			encoded, err := json.Marshal(report)
			if err != nil {
				return fmt.Errorf("failed to encode report for %s: %w", filename, err)
			}
			fmt.Println(string(encoded))
		} else {
			fmt.Printf("%s: %s\n", filename, report.Summary)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) could not be analyzed", failed)
	}

	return nil
}
