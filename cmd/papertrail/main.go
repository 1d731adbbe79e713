// Papertrail searches the scholarly literature, translates papers and
// generates reports and notebooks, caching every upstream lookup.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: papertrail [-config path] <command> [args]

commands:
  search [-limit n] [-offset n] [-year y] [-md] <query>
  paper <id>
  citations [-limit n] <id>
  references [-limit n] <id>
  graph [-depth n] [-per-node n] <id>
  translate -lang L <file|->
  notebook <id>
  report [-lang L] [-limit n] <id>
  serve

flags:
`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "configs/papertrail.yaml", "path to config file (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println("papertrail", version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, *configPath, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
