package cmd

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	xdr "github.com/nullstyle/go-xdr/xdr3"
	"github.com/spacemeshos/sha256-simd"
	"github.com/stretchr/testify/require"

	"github.com/spacemeshos/bitcursor/layout"
	"github.com/spacemeshos/bitcursor/shared"
)

var fixture = []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDecode_Table(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)

	out, err := execute(t, "decode", "--layout", "magic=u8 word=u16 tail=s3", path)
	req.NoError(err)
	req.Contains(out, "FIELD")
	req.Contains(out, "magic")
	req.Contains(out, "17699 (0x4523)")
	req.Contains(out, "-1")
}

func TestDecode_JSON(t *testing.T) {
	req := require.New(t)
	first := writeFile(t, "first.bin", []byte{0xFF})
	second := writeFile(t, "second.bin", []byte{0xAB, 0xF1})

	out, err := execute(t, "decode", "--format", "json", "--repeat", "--layout", "len=unary v=u3", second, first)
	req.NoError(err)

	var files []decodedFile
	req.NoError(json.Unmarshal([]byte(out), &files))
	req.Len(files, 2)

	req.Equal(second, files[0].Path)
	req.Equal(uint64(2), files[0].Size)
	req.Len(files[0].Records, 3)
	v, ok := files[0].Records[2].Get("v")
	req.True(ok)
	req.Equal(uint64(7), v.Uint)
	req.Equal(layout.KindUnsigned, v.Kind)

	req.Equal(first, files[1].Path)
	req.Len(files[1].Records, 2)
}

func TestDecode_StartBit(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)

	out, err := execute(t, "decode", "--format", "json", "--start-bit", "8", "--layout", "u16", path)
	req.NoError(err)

	var files []decodedFile
	req.NoError(json.Unmarshal([]byte(out), &files))
	v, ok := files[0].Records[0].Get("field0")
	req.True(ok)
	req.Equal(uint64(0x4523), v.Uint)
	req.Equal(uint64(8), v.Offset)

	_, err = execute(t, "decode", "--start-bit", "65", "--layout", "u16", path)
	req.ErrorIs(err, shared.ErrOutOfRange)
}

func TestDecode_Strict(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "short.bin", []byte{0x01, 0x02})

	_, err := execute(t, "decode", "--layout", "a=u8 b=u16", path)
	req.ErrorIs(err, shared.ErrOutOfRange)
	req.Contains(err.Error(), path)

	out, err := execute(t, "decode", "--strict=false", "--format", "json", "--layout", "a=u8 b=u16", path)
	req.NoError(err)

	var files []decodedFile
	req.NoError(json.Unmarshal([]byte(out), &files))
	req.False(files[0].Records[0].Good)
}

func TestDecode_Errors(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)

	_, err := execute(t, "decode", path)
	req.ErrorIs(err, shared.ErrInvalidLayout)

	_, err = execute(t, "decode", "--layout", "u99", path)
	req.ErrorIs(err, shared.ErrInvalidLayout)

	_, err = execute(t, "decode", "--layout", "u8", filepath.Join(t.TempDir(), "missing.bin"))
	req.ErrorIs(err, os.ErrNotExist)

	_, err = execute(t, "decode", "--layout", "u8")
	req.Error(err)

	_, err = execute(t, "decode", "--layout", "u8", "--format", "csv", path)
	var cfgErr shared.ConfigError
	req.ErrorAs(err, &cfgErr)
}

func TestDecode_Out(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)
	outPath := filepath.Join(t.TempDir(), "records.json")

	out, err := execute(t, "decode", "--format", "json", "--out", outPath, "--layout", "u8 u8", path)
	req.NoError(err)
	req.Empty(out)

	data, err := os.ReadFile(outPath)
	req.NoError(err)
	var files []decodedFile
	req.NoError(json.Unmarshal(data, &files))
	req.Len(files[0].Records[0].Values, 2)
}

func TestDecode_XDR(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)
	outPath := filepath.Join(t.TempDir(), "records.xdr")

	_, err := execute(t, "decode", "--format", "xdr", "--layout", "u8 payload=bytes:2", path)
	var cfgErr shared.ConfigError
	req.ErrorAs(err, &cfgErr)

	_, err = execute(t, "decode", "--format", "xdr", "--out", outPath, "--layout", "u8 payload=bytes:2", path)
	req.NoError(err)

	data, err := os.ReadFile(outPath)
	req.NoError(err)

	var files []decodedFile
	_, err = xdr.Unmarshal(bytes.NewReader(data), &files)
	req.NoError(err)
	req.Len(files, 1)
	req.Equal(path, files[0].Path)
	payload, ok := files[0].Records[0].Get("payload")
	req.True(ok)
	req.Equal([]byte{0x23, 0x45}, payload.Bytes)
}

func TestDecode_ConfigFile(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)
	cfgPath := writeFile(t, "bitcli.yaml", []byte("layout: \"first=u4 second=u4\"\nformat: json\n"))

	out, err := execute(t, "decode", "--config", cfgPath, path)
	req.NoError(err)

	var files []decodedFile
	req.NoError(json.Unmarshal([]byte(out), &files))
	second, ok := files[0].Records[0].Get("second")
	req.True(ok)
	req.Equal(uint64(0), second.Uint)
	first, _ := files[0].Records[0].Get("first")
	req.Equal(uint64(1), first.Uint)
}

func TestInfo(t *testing.T) {
	req := require.New(t)
	path := writeFile(t, "fixture.bin", fixture)

	out, err := execute(t, "info", path)
	req.NoError(err)

	digest := sha256.Sum256(fixture)
	req.Contains(out, hex.EncodeToString(digest[:]))
	req.Contains(out, "8B")
	req.Contains(out, "64")

	_, err = execute(t, "info", filepath.Join(t.TempDir(), "missing.bin"))
	req.ErrorIs(err, os.ErrNotExist)
}

func TestConfig(t *testing.T) {
	req := require.New(t)

	out, err := execute(t, "config", "--layout", "u8 bit", "--parallel", "3")
	req.NoError(err)
	req.Contains(out, `"u8 bit"`)
	req.Contains(out, "Parallelism: (int) 3")
}
