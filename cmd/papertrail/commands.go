package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	papertrail "github.com/eugener/papertrail/internal"
	"github.com/eugener/papertrail/internal/app"
	"github.com/eugener/papertrail/internal/document"
)

var errUsage = errors.New("usage")

type command func(ctx context.Context, rt *env, args []string) error

var commands = map[string]command{
	"search":     cmdSearch,
	"paper":      cmdPaper,
	"citations":  cmdLinks("citations"),
	"references": cmdLinks("references"),
	"graph":      cmdGraph,
	"translate":  cmdTranslate,
	"notebook":   cmdNotebook,
	"report":     cmdReport,
	"serve":      cmdServe,
}

func dispatch(ctx context.Context, rt *env, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", args[0], errUsage)
	}
	return cmd(ctx, rt, args[1:])
}

// parseFlags parses a subcommand's flags and requires exactly one positional
// argument, which it returns.
func parseFlags(fs *flag.FlagSet, args []string) (string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return "", fmt.Errorf("%s: %v: %w", fs.Name(), err, errUsage)
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected one argument, got %d: %w", fs.Name(), fs.NArg(), errUsage)
	}
	return fs.Arg(0), nil
}

func (rt *env) printJSON(v any) error {
	enc := json.NewEncoder(rt.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdSearch(ctx context.Context, rt *env, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	limit := fs.Int("limit", 10, "results per page")
	offset := fs.Int("offset", 0, "result offset")
	year := fs.String("year", "", `publication year or range, e.g. "2019" or "2016-2020"`)
	md := fs.Bool("md", false, "print a Markdown table instead of JSON")
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("search: %v: %w", err, errUsage)
	}
	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("search: missing query: %w", errUsage)
	}

	res, err := rt.app.Papers.Search(ctx, papertrail.SearchQuery{Query: query, Limit: *limit, Offset: *offset, Year: *year})
	if err != nil {
		return err
	}
	if *md {
		rt.printf("%s", document.RenderSearchMarkdown(query, res))
		return nil
	}
	return rt.printJSON(res)
}

func cmdPaper(ctx context.Context, rt *env, args []string) error {
	id, err := parseFlags(flag.NewFlagSet("paper", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	p, err := rt.app.Papers.Paper(ctx, id)
	if err != nil {
		return err
	}
	return rt.printJSON(p)
}

func cmdLinks(kind string) command {
	return func(ctx context.Context, rt *env, args []string) error {
		fs := flag.NewFlagSet(kind, flag.ContinueOnError)
		limit := fs.Int("limit", 10, "maximum papers")
		id, err := parseFlags(fs, args)
		if err != nil {
			return err
		}
		lookup := rt.app.Papers.Citations
		if kind == "references" {
			lookup = rt.app.Papers.References
		}
		papers, err := lookup(ctx, id, *limit)
		if err != nil {
			return err
		}
		return rt.printJSON(papers)
	}
}

func cmdGraph(ctx context.Context, rt *env, args []string) error {
	fs := flag.NewFlagSet("graph", flag.ContinueOnError)
	depth := fs.Int("depth", 1, fmt.Sprintf("citation levels to expand (max %d)", app.MaxGraphDepth))
	perNode := fs.Int("per-node", 10, "citing papers fetched per node")
	id, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	g, err := rt.app.Papers.Graph(ctx, id, *depth, *perNode)
	if err != nil {
		return err
	}
	return rt.printJSON(g)
}

func cmdTranslate(ctx context.Context, rt *env, args []string) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	lang := fs.String("lang", "", "target language, e.g. German")
	path, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	if *lang == "" {
		return fmt.Errorf("translate: -lang is required: %w", errUsage)
	}

	var text []byte
	if path == "-" {
		text, err = io.ReadAll(os.Stdin)
	} else {
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("translate: read input: %w", err)
	}

	tr, err := rt.app.Translations.Translate(ctx, string(text), *lang)
	if err != nil {
		return err
	}
	rt.printf("%s\n", tr.Text)
	return nil
}

func cmdNotebook(ctx context.Context, rt *env, args []string) error {
	id, err := parseFlags(flag.NewFlagSet("notebook", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	nb, err := rt.app.Notebooks.Generate(ctx, id)
	if err != nil {
		return err
	}
	data, err := nb.MarshalIPYNB()
	if err != nil {
		return err
	}
	return rt.writeOutput(document.SafeName(id)+".ipynb", data)
}

func cmdReport(ctx context.Context, rt *env, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	lang := fs.String("lang", "", "also translate the abstract into this language")
	limit := fs.Int("limit", 10, "citations and references per table")
	id, err := parseFlags(fs, args)
	if err != nil {
		return err
	}
	r, err := rt.app.Reports.Build(ctx, id, app.ReportOptions{Limit: *limit, Lang: *lang})
	if err != nil {
		return err
	}
	return rt.writeOutput(document.SafeName(id)+".md", []byte(r.RenderMarkdown()))
}

func (rt *env) writeOutput(name string, data []byte) error {
	path, err := document.WriteFile(rt.cfg.Output.Dir, name, data)
	if err != nil {
		return err
	}
	rt.printf("%s\n", path)
	return nil
}
