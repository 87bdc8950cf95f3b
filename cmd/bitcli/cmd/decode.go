package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/bitcursor/bitstream"
	"github.com/spacemeshos/bitcursor/config"
	"github.com/spacemeshos/bitcursor/layout"
	"github.com/spacemeshos/bitcursor/shared"
)

// decodedFile is the output unit of the decode command.
type decodedFile struct {
	Path    string          `json:"path"`
	Size    uint64          `json:"size"`
	Records []layout.Record `json:"records"`
}

func newDecodeCmd(a *app) *cobra.Command {
	var repeat bool

	decodeCmd := &cobra.Command{
		Use:   "decode [files...]",
		Short: "Decode files with a field layout",
		Long: `decode applies the layout to every file and prints the decoded fields.
Files are decoded in parallel, the output keeps the order of the arguments.

Layout items are "[name=]kind" with kinds uN, sN (0 <= N <= 64), bit, unary,
bytes:N, align, skip:N and seek:N.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.decode(args, repeat)
			if err != nil {
				return err
			}
			out, err := render(a.cfg.Format, files)
			if err != nil {
				return err
			}
			return a.write(cmd, out)
		},
	}

	flags := decodeCmd.Flags()
	flags.String("layout", "", "field layout, e.g. \"magic=u16 flag=bit len=unary\"")
	flags.Uint64("start-bit", config.DefaultStartBit, "bit position to start decoding at")
	flags.Bool("strict", config.DefaultStrict, "fail as soon as a field runs past the end of a file")
	flags.String("format", config.DefaultFormat, "output format (table, json, xdr)")
	flags.String("out", "", "write the output to this file instead of stdout")
	flags.Int("parallel", config.DefaultParallelism, "number of files decoded concurrently")
	flags.BoolVar(&repeat, "repeat", false, "apply the layout back to back until the end of each file")

	return decodeCmd
}

func (a *app) decode(paths []string, repeat bool) ([]decodedFile, error) {
	if a.cfg.Layout == "" {
		return nil, fmt.Errorf("%w: a layout is required", shared.ErrInvalidLayout)
	}
	l, err := layout.Parse(a.cfg.Layout)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("parsed layout", zap.Stringer("layout", l))

	files := make([]decodedFile, len(paths))
	var eg errgroup.Group
	eg.SetLimit(a.cfg.Parallelism)
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			file, err := a.decodeFile(l, path, repeat)
			files[i] = file
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return files, nil
}

func (a *app) decodeFile(l layout.Layout, path string, repeat bool) (decodedFile, error) {
	file := decodedFile{Path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return file, err
	}
	file.Size = uint64(len(data))

	logger := a.logger.With(zap.String("file", path))
	br := bitstream.NewReader(data, bitstream.WithLogger(logger))
	br.SetPosition(a.cfg.StartBit)
	if !br.Good() {
		return file, fmt.Errorf("%v: start bit: %w", path, br.Err())
	}

	dec := layout.NewDecoder(l, layout.WithStrict(a.cfg.Strict), layout.WithLogger(logger))

	var records []*layout.Record
	if repeat {
		records, err = dec.DecodeAll(br)
	} else {
		var rec *layout.Record
		rec, err = dec.Decode(br)
		if rec != nil {
			records = append(records, rec)
		}
	}
	for _, rec := range records {
		file.Records = append(file.Records, *rec)
	}
	if err != nil {
		return file, fmt.Errorf("%v: %w", path, err)
	}

	if last := records[len(records)-1]; !last.Good {
		logger.Warn("input ended inside a record", zap.Uint64("bit", last.End))
	}
	logger.Info("decoded file",
		zap.Int("records", len(records)),
		zap.Uint64("remaining", br.Remaining()),
	)

	return file, nil
}
