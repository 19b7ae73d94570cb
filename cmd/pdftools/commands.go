package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/local/pdftools/internal/apperr"
	"github.com/local/pdftools/internal/archive"
	"github.com/local/pdftools/internal/artifact"
	"github.com/local/pdftools/internal/compress"
	"github.com/local/pdftools/internal/docqueue"
	"github.com/local/pdftools/internal/filetype"
	"github.com/local/pdftools/internal/imagerender"
	"github.com/local/pdftools/internal/merge"
	"github.com/local/pdftools/internal/numbering"
	"github.com/local/pdftools/internal/overlay"
	"github.com/local/pdftools/internal/pdfdoc"
	"github.com/local/pdftools/internal/split"
)

// toolkit holds the providers the commands run on. Tests swap in memdoc.
type toolkit struct {
	model  pdfdoc.Model
	raster pdfdoc.Rasterizer
}

var tools = func() toolkit {
	return toolkit{model: pdfdoc.NewPDFCPU(), raster: imagerender.NewFitz()}
}

// readPDF loads a local file and applies the same type gate as uploads.
func readPDF(path string) (docqueue.RawFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return docqueue.RawFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	name := filepath.Base(path)
	if err := filetype.New().CheckPDF(name, filetype.PDF, data); err != nil {
		return docqueue.RawFile{}, err
	}
	return docqueue.RawFile{Name: name, ContentType: filetype.PDF, Data: data}, nil
}

func singleInput(c *cli.Context) (docqueue.RawFile, error) {
	if c.NArg() != 1 {
		return docqueue.RawFile{}, fmt.Errorf("%s needs exactly one input file", c.Command.Name)
	}
	return readPDF(c.Args().First())
}

func write(c *cli.Context, art artifact.Artifact) error {
	dir := c.String("out-dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	p := filepath.Join(dir, art.Name)
	if err := os.WriteFile(p, art.Data, 0o644); err != nil {
		return err
	}
	log.Debug().Str("path", p).Int("bytes", art.Size()).Msg("result written")
	fmt.Fprintln(c.App.Writer, p)
	return nil
}

func numberCommand() *cli.Command {
	return &cli.Command{
		Name:      "number",
		Usage:     "stamp page numbers",
		ArgsUsage: "<file.pdf>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "range", Value: "all", Usage: "pages to number, e.g. 1-3,5"},
			&cli.StringFlag{Name: "position", Value: overlay.BottomCenter.String(), Usage: "one of " + strings.Join(overlay.Names(), ", ")},
			&cli.StringFlag{Name: "format", Value: numbering.DefaultFormat, Usage: "label with {page} and {total}"},
			&cli.IntFlag{Name: "font-size", Value: numbering.DefaultFontSize},
			&cli.StringFlag{Name: "color", Value: "#000000"},
			&cli.Float64Flag{Name: "margin", Value: overlay.DefaultMargin},
		},
		Action: func(c *cli.Context) error {
			anchor, err := overlay.ParseAnchor(c.String("position"))
			if err != nil {
				return withSuggestion(err, c.String("position"), overlay.Names())
			}
			file, err := singleInput(c)
			if err != nil {
				return err
			}
			art, err := numbering.New(tools().model).Apply(c.Context, file.Name, file.Data, numbering.Options{
				Range:    c.String("range"),
				Anchor:   anchor,
				Format:   c.String("format"),
				FontSize: c.Int("font-size"),
				Color:    c.String("color"),
				Margin:   numbering.Margin(c.Float64("margin")),
			})
			if err != nil {
				return err
			}
			return write(c, art)
		},
	}
}

var levelFlag = &cli.StringFlag{Name: "level", Value: string(compress.DefaultLevel), Usage: "one of " + strings.Join(compress.DefaultLevels().Names(), ", ")}

func pipeline() *compress.Pipeline {
	tk := tools()
	return compress.New(tk.model, tk.raster, compress.DefaultLevels())
}

// checkLevel rejects unknown levels before any file is read.
func checkLevel(p *compress.Pipeline, name string) (compress.Level, error) {
	level := compress.Level(name)
	if _, err := p.Levels.Quality(level); err != nil {
		return level, withSuggestion(err, name, p.Levels.Names())
	}
	return level, nil
}

func compressCommand() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Usage:     "re-encode every page as a JPEG",
		ArgsUsage: "<file.pdf>",
		Flags:     []cli.Flag{levelFlag},
		Action: func(c *cli.Context) error {
			p := pipeline()
			level, err := checkLevel(p, c.String("level"))
			if err != nil {
				return err
			}
			file, err := singleInput(c)
			if err != nil {
				return err
			}
			art, err := p.Compress(c.Context, file.Name, file.Data, level)
			if err != nil {
				return err
			}
			return write(c, art)
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "estimate the compressed size",
		ArgsUsage: "<file.pdf>",
		Flags:     []cli.Flag{levelFlag},
		Action: func(c *cli.Context) error {
			p := pipeline()
			level, err := checkLevel(p, c.String("level"))
			if err != nil {
				return err
			}
			file, err := singleInput(c)
			if err != nil {
				return err
			}
			est, err := p.EstimatePreview(c.Context, file.Data, level)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(est)
		},
	}
}

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "extract a page range or write every page to a zip",
		ArgsUsage: "<file.pdf>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: string(split.ModeExtract), Usage: "extract or explode"},
			&cli.StringFlag{Name: "ranges", Usage: "pages to extract, e.g. 1-3,5"},
		},
		Action: func(c *cli.Context) error {
			mode, err := split.ParseMode(c.String("mode"))
			if err != nil {
				return withSuggestion(err, c.String("mode"), []string{string(split.ModeExtract), string(split.ModeExplode)})
			}
			file, err := singleInput(c)
			if err != nil {
				return err
			}
			art, err := split.New(tools().model, archive.Zip{}).Split(c.Context, file.Name, file.Data, mode, c.String("ranges"))
			if err != nil {
				return err
			}
			return write(c, art)
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:      "merge",
		Usage:     "concatenate files in the given order",
		ArgsUsage: "<a.pdf> <b.pdf> [more.pdf...]",
		Action: func(c *cli.Context) error {
			var files []docqueue.RawFile
			for _, p := range c.Args().Slice() {
				f, err := readPDF(p)
				if err != nil {
					return err
				}
				files = append(files, f)
			}
			q, res := docqueue.Queue{}.Add(files)
			for _, d := range res.Duplicates {
				log.Warn().Str("file", d).Msg("skipping duplicate name")
			}
			if !q.CanMerge() {
				return apperr.Newf(apperr.KindInsufficientInputs, "merge", "%d distinct files given", q.Len())
			}
			art, err := merge.New(tools().model).Merge(c.Context, q.Snapshot())
			if err != nil {
				return err
			}
			return write(c, art)
		},
	}
}
