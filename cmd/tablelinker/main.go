// Command tablelinker cleans and converts tabular data files.
//
// Usage:
//
//	tablelinker convert -i in.csv -o out.csv -t task.json
//	tablelinker batch -t task.json -o outdir a.csv b.xlsx https://example.org/c.csv
//	tablelinker clean -i sjis.csv -o utf8.csv
//	tablelinker list --attrs 1
//	tablelinker validate -t task.json --header name,pop,area
//	tablelinker merge -o all.csv a.csv b.csv
//	tablelinker export -i in.csv --kind sqlite --dsn out.db --table cities
//	tablelinker serve --addr :8080
//
// Settings come from the environment (and a .env file when present);
// flags override them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tablelinker/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := a.rootCmd().ExecuteContext(ctx)
	a.shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// errInvalid marks failures caused by the user's input rather than the
// environment.
var errInvalid = errors.New("invalid input")

func exitCode(err error) int {
	if errors.Is(err, errInvalid) || pipeline.IsConfigError(err) {
		return 2
	}
	return 1
}
