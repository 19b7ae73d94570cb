// Command pdftools runs the document tools on local files.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/local/pdftools/internal/apperr"
	logpkg "github.com/local/pdftools/internal/logger"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "pdftools",
		Usage: "number, compress, split and merge PDF files",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
			&cli.StringFlag{Name: "out-dir", Aliases: []string{"o"}, Value: ".", Usage: "directory results are written to", EnvVars: []string{"PDFTOOLS_OUT_DIR"}},
		},
		Before: func(c *cli.Context) error {
			level := "warn"
			if c.Bool("verbose") {
				level = "debug"
			}
			return logpkg.Init(logpkg.Options{Level: level, Pretty: true, Console: os.Stderr})
		},
		After: func(c *cli.Context) error {
			logpkg.Close()
			return nil
		},
		Commands: []*cli.Command{
			numberCommand(),
			compressCommand(),
			previewCommand(),
			splitCommand(),
			mergeCommand(),
		},
	}
}

// describe prefers the user-facing message and keeps the detail for
// errors that are not classified.
func describe(err error) string {
	if apperr.KindOf(err) == apperr.KindUnknown {
		return err.Error()
	}
	return apperr.UserMessage(err) + " (" + err.Error() + ")"
}
