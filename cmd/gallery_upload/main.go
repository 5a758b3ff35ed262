package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jwtlib "school_gallery/internal/lib/jwt"
	"school_gallery/internal/platform"
	"school_gallery/internal/upload"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var errNoToken = errors.New("admin token is required (--token or GALLERY_TOKEN)")

type cli struct {
	api             string
	token           string
	maxSize         int64
	transferTimeout time.Duration
	verbose         bool

	out    io.Writer
	log    *slog.Logger
	client *platform.Client
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:           "gallery_upload",
		Short:         "Upload photos into the school gallery",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}

	root.PersistentFlags().StringVar(&c.api, "api", "", "gallery service base URL (env GALLERY_API)")
	root.PersistentFlags().StringVar(&c.token, "token", "", "admin bearer token (env GALLERY_TOKEN)")
	root.PersistentFlags().Int64Var(&c.maxSize, "max-size", upload.DefaultMaxFileSize, "largest accepted file in bytes")
	root.PersistentFlags().DurationVar(&c.transferTimeout, "transfer-timeout", 0, "give up on a single stalled transfer after this long (0 = never)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log requests")

	root.AddCommand(newTokenCommand(c))
	root.AddCommand(newUploadCommand(c))
	root.AddCommand(newEventsCommand(c))
	root.AddCommand(newDeleteEventCommand(c))

	return root
}

// setup добирает флаги из окружения и создает клиент платформы
func (c *cli) setup() error {
	if c.api == "" {
		c.api = envOr("GALLERY_API", "http://localhost:8080")
	}
	if c.token == "" {
		c.token = os.Getenv("GALLERY_TOKEN")
	}

	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	c.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	c.client = platform.New(c.api, c.token, &http.Client{Timeout: time.Minute})
	return nil
}

// adminName имя администратора из токена, пишется в uploaded_by
func (c *cli) adminName() (string, error) {
	if c.token == "" {
		return "", errNoToken
	}
	name, err := jwtlib.NameFromToken(c.token)
	if err != nil {
		return "", fmt.Errorf("read admin token: %w", err)
	}
	return name, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
