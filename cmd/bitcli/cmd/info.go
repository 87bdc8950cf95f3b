package cmd

import (
	"bytes"
	"encoding/hex"
	"os"
	"strconv"

	"code.cloudfoundry.org/bytefmt"
	"github.com/olekukonko/tablewriter"
	"github.com/spacemeshos/sha256-simd"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info [files...]",
		Short: "Print the size and digest of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			table := tablewriter.NewWriter(&buf)
			table.SetHeader([]string{"File", "Size", "Bits", "SHA256"})
			table.SetAutoWrapText(false)

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				digest := sha256.Sum256(data)
				a.logger.Debug("read file", zap.String("file", path), zap.Int("bytes", len(data)))

				table.Append([]string{
					path,
					bytefmt.ByteSize(uint64(len(data))),
					strconv.FormatUint(uint64(len(data))*8, 10),
					hex.EncodeToString(digest[:]),
				})
			}
			table.Render()

			_, err := cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}
}
