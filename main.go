package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/lvcoi/mediabatch/internal/app"
	"github.com/lvcoi/mediabatch/internal/pipeline"
)

const version = "0.2.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var (
		modeFlag    = flag.String("mode", "both", "what to produce: video, transcript or both")
		inputFlag   = flag.String("i", "", "input file with one entry per line (\"url\" or \"url - name\"); default stdin")
		outputFlag  = flag.String("o", "", "output root directory (default: fresh temp dir)")
		cookiesFlag = flag.String("cookies", "", "Netscape cookies file for sources that require a login")
		delayFlag   = flag.Duration("delay", 0, "pacing between fetches against rate-limited sources")
		archiveFlag = flag.Bool("archive", false, "package results into a zip archive")
		sidecarFlag = flag.Bool("sidecar", false, "write a JSON metadata sidecar per item")
		tagsFlag    = flag.Bool("tags", false, "embed source metadata tags into delivered files")
		historyFlag = flag.Int("history", 0, "print the n most recent batches and exit")
		noProgress  = flag.Bool("no-progress", false, "disable the progress UI")
		noColor     = flag.Bool("no-color", false, "disable colored output")
		quietFlag   = flag.Bool("quiet", false, "suppress progress output (errors still shown)")
		bellFlag    = flag.Bool("bell", false, "ring the terminal bell when the batch finishes")
		logLevel    = flag.String("log-level", "info", "log level: debug, info, warn, error")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Println("mediabatch " + version)
		return
	}

	cookies := firstNonEmpty(*cookiesFlag, os.Getenv("MEDIABATCH_COOKIES"))
	output := firstNonEmpty(*outputFlag, os.Getenv("MEDIABATCH_OUTPUT"))
	delay := *delayFlag
	if delay == 0 {
		if raw := os.Getenv("MEDIABATCH_DELAY"); raw != "" {
			if parsed, err := time.ParseDuration(raw); err == nil {
				delay = parsed
			}
		}
	}

	if *historyFlag > 0 {
		if err := app.History(catalogPath(firstNonEmpty(output, ".")), *historyFlag, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	mode, err := pipeline.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(pipeline.ExitCode(err))
	}

	if cookies != "" {
		if _, err := os.Stat(cookies); err != nil {
			fmt.Fprintf(os.Stderr, "error: cookies file: %v\n", err)
			os.Exit(2)
		}
	}

	content, err := readInput(*inputFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	lines := pipeline.ParseLines(content)
	if len(lines) == 0 {
		usage()
		os.Exit(2)
	}

	if output == "" {
		output, err = os.MkdirTemp("", "mediabatch-")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: creating output directory: %v\n", err)
			os.Exit(4)
		}
		if !*quietFlag {
			fmt.Fprintf(os.Stderr, "output root: %s\n", output)
		}
	}

	opts := pipeline.Options{
		Mode:         mode,
		OutputDir:    output,
		CookiesFile:  cookies,
		Delay:        delay,
		WhisperBin:   os.Getenv("WHISPER_BIN"),
		WhisperModel: os.Getenv("WHISPER_MODEL"),
		Sidecars:     *sidecarFlag,
		EmbedTags:    *tagsFlag,
		Archive:      *archiveFlag,
		CatalogPath:  catalogPath(output),
		Quiet:        *quietFlag,
		NoColor:      *noColor,
		NoProgress:   *noProgress,
		Bell:         *bellFlag,
		LogLevel:     *logLevel,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = app.Run(ctx, lines, opts)
	if err != nil {
		if ctx.Err() != nil {
			os.Exit(130)
		}
		if !pipeline.IsReported(err) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(pipeline.ExitCode(err))
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [options] [-i lines.txt]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "input lines: \"<url>\" or \"<url> - <output name>\", one per line")
	flag.PrintDefaults()
}

// readInput returns the raw line list, either from the -i file or from a
// piped stdin.
func readInput(path string) (string, error) {
	if path != "" && path != "-" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading input file: %w", err)
		}
		return string(data), nil
	}

	info, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("inspecting stdin: %w", err)
	}
	if path == "" && info.Mode()&os.ModeCharDevice != 0 {
		// Interactive terminal with no -i: nothing to read.
		return "", nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func catalogPath(outputRoot string) string {
	if env := os.Getenv("MEDIABATCH_CATALOG"); env != "" {
		return env
	}
	return filepath.Join(outputRoot, "catalog.db")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
