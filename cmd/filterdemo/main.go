// Command filterdemo exercises the filter pipeline end to end: open a
// local file as a base filter, optionally chain RC4/Zstd decode on
// top, and copy the result to stdout a byte at a time through GetByte.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mimecast/filterpipe/internal/device/localfile"
	"github.com/mimecast/filterpipe/internal/errors"
	"github.com/mimecast/filterpipe/internal/filter"
	"github.com/mimecast/filterpipe/internal/filter/cryptofilter"
	"github.com/mimecast/filterpipe/internal/filter/zstdfilter"
	"github.com/mimecast/filterpipe/internal/io/logger"
	"github.com/mimecast/filterpipe/internal/version"
)

func main() {
	path := flag.String("file", "", "path to decode")
	rc4Key := flag.String("rc4-key", "", "hex RC4 key; if set, chain RC4Decode")
	zstdDecode := flag.Bool("zstd", false, "chain ZstdDecode")
	showVersion := flag.Bool("version", false, "print version and exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger.Start(logger.Mode{Debug: *debug})
	defer logger.Flush()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: filterdemo -file <path> [-rc4-key hex] [-zstd]")
		os.Exit(2)
	}

	if err := run(*path, *rc4Key, *zstdDecode); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func run(path, rc4Key string, decodeZstd bool) error {
	dev, err := localfile.Open(path)
	if err != nil {
		return err
	}

	base, err := filter.NewBaseFile(filter.GlobalRegistry, path, filter.Input, dev, 0)
	if err != nil {
		return err
	}
	head := base

	if rc4Key != "" {
		key, err := decodeHex(rc4Key)
		if err != nil {
			return errors.Wrap(err, "bad -rc4-key")
		}
		f, err := cryptofilter.NewRC4Decode(filter.GlobalRegistry, path+"#rc4", head.Ref(), filter.Args{"RC4Key": key})
		if err != nil {
			return err
		}
		head = f
	}

	if decodeZstd {
		f, err := zstdfilter.NewDecode(filter.GlobalRegistry, path+"#zstd", head.Ref())
		if err != nil {
			return err
		}
		head = f
	}

	defer filter.Close(head, filter.Explicit)

	w := os.Stdout
	for {
		c, err := head.GetByte()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if _, err := w.Write([]byte{c}); err != nil {
			return err
		}
	}
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.ErrRangeCheck
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := hexVal(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexVal(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexVal(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errors.ErrRangeCheck
	}
}
