// Copyright (c) 2024 Michael D Henderson. All rights reserved.

// Package main implements the pn command-line tool: a cobra command tree
// wrapping the library's Load/Dump and the JSON bridge, grounded in
// cmd/parser/main.go's pattern of persistent logging flags plus one
// RunE per subcommand. This supplements the CLI executables spec.md left
// as out-of-scope interface-only collaborators (pnfmt, pn2json, json2pn,
// pnparse) as subcommands of one binary.
package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/arescentral/procyon"
	"github.com/arescentral/procyon/lex"
	"github.com/arescentral/procyon/parse"
	"github.com/arescentral/procyon/pnjson"
	"github.com/spf13/cobra"
)

var logger *slog.Logger

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	var logLevel string
	var logSource bool

	cmdRoot := &cobra.Command{
		Use:           "pn",
		Short:         "procyon data-interchange tool",
		Long:          `Format, convert, and inspect Procyon documents.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     lvl,
				AddSource: logSource,
			}))
			return nil
		},
	}
	cmdRoot.PersistentFlags().StringVar(&logLevel, "log-level", "error", "logging level (debug|info|warn|error)")
	cmdRoot.PersistentFlags().BoolVar(&logSource, "log-source", false, "add file and line numbers to log messages")

	cmdRoot.AddCommand(newFmtCmd(), newPn2JSONCmd(), newJSON2PnCmd(), newParseCmd())

	if err := cmdRoot.Execute(); err != nil {
		logger.Error("pn", "error", err)
		os.Exit(1)
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error", "":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log-level: unknown value %q", s)
	}
}

// openInput opens path, or stdin when path is "" or "-".
func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// openOutput opens path for writing, or stdout when path is "".
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func parseStyle(s string) (procyon.Style, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return procyon.StyleDefault, nil
	case "short":
		return procyon.StyleShort, nil
	case "minified":
		return procyon.StyleMinified, nil
	default:
		return 0, fmt.Errorf("style: unknown value %q", s)
	}
}

func newFmtCmd() *cobra.Command {
	var output, style string
	cmd := &cobra.Command{
		Use:   "fmt [input.pn]",
		Short: "canonicalise a Procyon document (≈ pnfmt)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			st, err := parseStyle(style)
			if err != nil {
				return err
			}
			in, err := openInput(path)
			if err != nil {
				return err
			}
			defer in.Close()

			v, err := procyon.Load(in)
			if err != nil {
				return err
			}

			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()

			logger.Debug("fmt", "input", path, "style", style)
			return procyon.Dump(out, v, st, nil)
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "write result to file instead of stdout")
	cmd.Flags().StringVar(&style, "style", "default", "output style (default|short|minified)")
	return cmd
}

func newPn2JSONCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "pn2json [input.pn]",
		Short: "translate a Procyon document to JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			in, err := openInput(path)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()
			return pnjson.ToJSON(out, in)
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "write result to file instead of stdout")
	return cmd
}

func newJSON2PnCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "json2pn [input.json]",
		Short: "translate a JSON document to Procyon",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			in, err := openInput(path)
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()
			return pnjson.FromJSON(out, in)
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "write result to file instead of stdout")
	return cmd
}

// newParseCmd dumps the raw event stream (≈ pnparse), for debugging the
// lexer/parser directly without going through tree construction.
func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [input.pn]",
		Short: "print the parse event stream for a Procyon document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			in, err := openInput(path)
			if err != nil {
				return err
			}
			defer in.Close()

			data, err := io.ReadAll(in)
			if err != nil {
				return err
			}
			p := parse.New(lex.New(data))

			var out bytes.Buffer
			for {
				ev, ok, err := p.Next()
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				fmt.Fprintf(&out, "%s %s", ev.Kind, ev.Form)
				if ev.HasKey {
					fmt.Fprintf(&out, " key=%q", ev.Key)
				}
				if ev.Value != nil {
					fmt.Fprintf(&out, " value=%v", ev.Value)
				}
				out.WriteByte('\n')
			}
			_, err = os.Stdout.Write(out.Bytes())
			return err
		},
	}
	return cmd
}
