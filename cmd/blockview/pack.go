package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gekko3d/blockview"
	"github.com/klauspost/compress/zstd"
)

// packCmd stores an exported asset directory in a sqlite archive, keyed by
// slash-separated relative path. With -zstd each entry is stored compressed
// under its path plus ".zst".
func packCmd(args []string) error {
	fset := flag.NewFlagSet("pack", flag.ContinueOnError)
	out := fset.String("out", "assets.db", "archive to create or extend")
	compress := fset.Bool("zstd", false, "store entries zstd-compressed")
	if err := fset.Parse(args); err != nil {
		return err
	}
	if fset.NArg() != 1 {
		return errors.New("usage: blockview pack [-out assets.db] [-zstd] <dir>")
	}
	assets, err := collect(fset.Arg(0), *compress)
	if err != nil {
		return err
	}
	if err := blockview.WriteArchive(context.Background(), *out, assets); err != nil {
		return err
	}
	fmt.Printf("packed %d assets into %s\n", len(assets), *out)
	return nil
}

func collect(root string, compress bool) (map[string][]byte, error) {
	var enc *zstd.Encoder
	if compress {
		var err error
		if enc, err = zstd.NewWriter(nil); err != nil {
			return nil, err
		}
		defer enc.Close()
	}
	assets := make(map[string][]byte)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		uri := filepath.ToSlash(rel)
		if enc != nil {
			assets[uri+".zst"] = enc.EncodeAll(data, nil)
			return nil
		}
		assets[uri] = data
		return nil
	})
	return assets, err
}
