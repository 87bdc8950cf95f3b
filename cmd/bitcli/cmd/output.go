package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/natefinch/atomic"
	xdr "github.com/nullstyle/go-xdr/xdr3"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spacemeshos/bitcursor/config"
)

func render(format string, files []decodedFile) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case config.FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(files); err != nil {
			return nil, fmt.Errorf("serialization failure: %w", err)
		}
	case config.FormatXDR:
		if _, err := xdr.Marshal(&buf, files); err != nil {
			return nil, fmt.Errorf("serialization failure: %w", err)
		}
	default:
		renderTable(&buf, files)
	}
	return buf.Bytes(), nil
}

func renderTable(buf *bytes.Buffer, files []decodedFile) {
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"File", "Record", "Field", "Kind", "Offset", "Bits", "Value"})
	table.SetAutoWrapText(false)
	for _, file := range files {
		for i, rec := range file.Records {
			for _, v := range rec.Values {
				table.Append([]string{
					file.Path,
					strconv.Itoa(i),
					v.Name,
					v.Kind.String(),
					strconv.FormatUint(v.Offset, 10),
					strconv.FormatUint(v.Bits, 10),
					v.String(),
				})
			}
		}
	}
	table.Render()
}

// write sends out to the configured output file, replacing it atomically,
// or to the command's stdout.
func (a *app) write(cmd *cobra.Command, out []byte) error {
	if a.cfg.Out == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}

	if err := atomic.WriteFile(a.cfg.Out, bytes.NewReader(out)); err != nil {
		return fmt.Errorf("write to disk failure: %w", err)
	}
	a.logger.Info("output written", zap.String("path", a.cfg.Out), zap.Int("bytes", len(out)))
	return nil
}
