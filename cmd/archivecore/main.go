// Command archivecore is a small demonstration front-end for the
// rewrite package: a one-shot file rewriter, a URL remapper built on
// urlrebase, a golden-file diff checker, and an HTTP server that
// exposes content rewriting over a chi-routed API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"

	"github.com/archivecore/rewrite/internal/httpmw"
	"github.com/archivecore/rewrite/internal/logging"
	"github.com/archivecore/rewrite/internal/metrics"
	"github.com/archivecore/rewrite/rewrite"
	"github.com/archivecore/rewrite/urlrebase"
)

const version = "0.1.0"

var contextFlags = []cli.Flag{
	&cli.StringFlag{Name: "archive-prefix", Value: "/web/", Usage: "replay server path prefix"},
	&cli.StringFlag{Name: "timestamp", Value: "20260101000000", Usage: "14-digit capture timestamp"},
	&cli.StringFlag{Name: "original-url", Required: true, Usage: "URL the document was captured from"},
	&cli.StringFlag{Name: "mod", Value: "", Usage: "rewrite modifier (im_, js_, cs_, if_, oe_ or empty for html)"},
	&cli.StringFlag{Name: "content-type", Value: "text/html", Usage: "Content-Type of the body being rewritten"},
	&cli.BoolFlag{Name: "rewrite-rel-canon", Usage: "rewrite <link rel=canonical> instead of leaving it pointing at the live web"},
	&cli.BoolFlag{Name: "rewrite-base", Usage: "rewrite <base href>"},
	&cli.BoolFlag{Name: "punycode-links", Usage: "punycode-encode non-ASCII hosts before archiving"},
	&cli.StringFlag{Name: "js-rewrite-location", Value: string(rewrite.JSRewriteLinkOnly), Usage: "all, location, none or link-only"},
	&cli.BoolFlag{Name: "parse-comments", Usage: "rewrite URLs inside HTML comments"},
	&cli.StringFlag{Name: "cookie-scope", Value: string(rewrite.CookieScopeDefault), Usage: "default, host, exact, coll or root"},
	&cli.StringFlag{Name: "head-insert", Usage: "markup to insert at the start of <head>"},
}

func contextFromFlags(c *cli.Context) rewrite.Context {
	flags := rewrite.DefaultFlags()
	flags.RewriteRelCanon = c.Bool("rewrite-rel-canon")
	flags.RewriteBase = c.Bool("rewrite-base")
	flags.PunycodeLinks = c.Bool("punycode-links")
	flags.JSRewriteLocation = rewrite.JSLocationMode(c.String("js-rewrite-location"))
	flags.ParseComments = c.Bool("parse-comments")
	flags.CookieScope = rewrite.CookieScope(c.String("cookie-scope"))

	return rewrite.Context{
		ArchivePrefix: c.String("archive-prefix"),
		Timestamp:     c.String("timestamp"),
		OriginalURL:   c.String("original-url"),
		Mod:           rewrite.Mod(c.String("mod")),
		Flags:         flags,
	}
}

func ruleSetFromFlags(c *cli.Context) *rewrite.RuleSet {
	var opts []rewrite.RuleSetOption
	if hi := c.String("head-insert"); hi != "" {
		opts = append(opts, rewrite.WithRuleSetHeadInsert(hi))
	}
	return rewrite.NewRuleSet(opts...)
}

func main() {
	app := &cli.App{
		Name:    "archivecore",
		Usage:   "rewrite archived HTML/CSS/JS/JSON/XML so embedded URLs resolve against the archive",
		Version: version,
		Commands: []*cli.Command{
			rewriteCommand(),
			remapCommand(),
			verifyCommand(),
			serveCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		code := 1
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		os.Exit(code)
	}
}

func rewriteCommand() *cli.Command {
	return &cli.Command{
		Name:      "rewrite",
		Usage:     "rewrite a single file and print the result to stdout",
		ArgsUsage: "file",
		Flags:     append([]cli.Flag{}, contextFlags...),
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one file argument")
			}
			body, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			rs := ruleSetFromFlags(c)
			cr := rs.NewContentRewriter(contextFromFlags(c), c.String("content-type"))
			out, err := cr.Feed(body)
			if err != nil {
				return fmt.Errorf("rewrite: %w", err)
			}
			tail, err := cr.Close()
			if err != nil {
				return fmt.Errorf("rewrite: %w", err)
			}
			if _, err := os.Stdout.Write(out); err != nil {
				return err
			}
			_, err = os.Stdout.Write(tail)
			return err
		},
	}
}

func remapCommand() *cli.Command {
	return &cli.Command{
		Name:      "remap",
		Usage:     "rebase URLs from one archive root to another",
		ArgsUsage: "oldBase newBase url [url...]",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 3 {
				return fmt.Errorf("expected oldBase, newBase and at least one url")
			}
			oldBase, err := url.Parse(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("parse oldBase: %w", err)
			}
			newBase, err := url.Parse(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("parse newBase: %w", err)
			}
			for _, arg := range c.Args().Slice()[2:] {
				u, err := url.Parse(arg)
				if err != nil {
					return fmt.Errorf("parse %q: %w", arg, err)
				}
				rebased, err := urlrebase.Rebase(u, oldBase, newBase)
				switch {
				case errors.Is(err, urlrebase.ErrNoBase):
					fmt.Printf("%s\tunchanged (not under oldBase)\n", arg)
				case err != nil:
					return fmt.Errorf("rebase %q: %w", arg, err)
				default:
					fmt.Printf("%s\t%s\n", arg, rebased.String())
				}
			}
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "diff a rewritten file against a golden file",
		ArgsUsage: "golden actual",
		Action: func(c *cli.Context) error {
			if c.Args().Len() != 2 {
				return fmt.Errorf("expected golden and actual file arguments")
			}
			golden, err := os.ReadFile(c.Args().Get(0))
			if err != nil {
				return err
			}
			actual, err := os.ReadFile(c.Args().Get(1))
			if err != nil {
				return err
			}
			if string(golden) == string(actual) {
				fmt.Println("no differences")
				return nil
			}
			diff := difflib.UnifiedDiff{
				A:        difflib.SplitLines(string(golden)),
				FromFile: c.Args().Get(0),
				B:        difflib.SplitLines(string(actual)),
				ToFile:   c.Args().Get(1),
				Context:  3,
			}
			text, err := difflib.GetUnifiedDiffString(diff)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return cli.Exit("differences found", 1)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve content rewriting over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.StringFlag{Name: "log-format", Value: "console", Usage: "console or json"},
			&cli.Float64Flag{Name: "rate-limit", Value: 50, Usage: "requests per second allowed across all callers"},
			&cli.IntFlag{Name: "rate-burst", Value: 20},
			&cli.StringFlag{Name: "head-insert", Usage: "markup to insert at the start of every rewritten <head>"},
		},
		Action: func(c *cli.Context) error {
			logger := logging.New(logging.Config{Level: c.String("log-level"), Format: c.String("log-format")}, "archivecore", version)
			m := metrics.New("archivecore")

			var rsOpts []rewrite.RuleSetOption
			if hi := c.String("head-insert"); hi != "" {
				rsOpts = append(rsOpts, rewrite.WithRuleSetHeadInsert(hi))
			}
			rs := rewrite.NewRuleSet(rsOpts...)

			limiter := rate.NewLimiter(rate.Limit(c.Float64("rate-limit")), c.Int("rate-burst"))

			router := chi.NewRouter()
			router.Use(httpmw.RequestID)
			router.Use(httpmw.AccessLog(logger))
			router.Use(httpmw.RateLimit(limiter, m.RateLimitDropped.Inc))

			router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})
			router.Handle("/metrics", promhttp.Handler())
			router.Post("/rewrite", rewriteHandler(rs, m, logger))

			server := &http.Server{
				Addr:              c.String("addr"),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
			serveErr := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", server.Addr).Msg("archivecore listening")
				serveErr <- server.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-shutdown:
				logger.Info().Str("signal", sig.String()).Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(ctx)
			}
			return nil
		},
	}
}

// rewriteHandler rewrites one request body according to the archive
// context carried in its query string. Every rewrite it attempts is
// recorded in metrics, and a failed rewrite is logged with its request
// ID; requests rejected before rewriting are not counted.
func rewriteHandler(rs *rewrite.RuleSet, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		originalURL := q.Get("url")
		if originalURL == "" {
			http.Error(w, "missing url query parameter", http.StatusBadRequest)
			return
		}
		contentType := q.Get("content_type")
		if contentType == "" {
			contentType = r.Header.Get("Content-Type")
		}

		flags := rewrite.DefaultFlags()
		ctx := rewrite.Context{
			ArchivePrefix: defaultString(q.Get("archive_prefix"), "/web/"),
			Timestamp:     defaultString(q.Get("timestamp"), "20260101000000"),
			OriginalURL:   originalURL,
			Mod:           rewrite.Mod(q.Get("mod")),
			Flags:         flags,
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 64<<20))
		if err != nil {
			http.Error(w, "read body: "+err.Error(), http.StatusBadRequest)
			return
		}

		class := q.Get("content_type")
		start := time.Now()
		cr := rs.NewContentRewriter(ctx, contentType)
		out, err := cr.Feed(body)
		if err == nil {
			var tail []byte
			tail, err = cr.Close()
			out = append(out, tail...)
		}
		if err != nil {
			m.Observe(class, "error", time.Since(start), len(body), 0)
			logger.Error().Err(err).Str("request_id", httpmw.RequestIDFromContext(r.Context())).Msg("rewrite failed")
			http.Error(w, "rewrite: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}

		m.Observe(class, "ok", time.Since(start), len(body), len(out))
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(out)
	}
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
