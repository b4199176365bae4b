package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/multierr"

	"github.com/born-ml/storagebridge/internal/serialization"
	"github.com/born-ml/storagebridge/internal/storage"
)

func runPack(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	fs.SetOutput(out)
	var meta metadataFlag
	fs.Var(&meta, "meta", "metadata entry key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("pack needs an output file and at least one input: %w", errUsage)
	}

	storages := make(map[string]storage.Storage, fs.NArg()-1)
	defer serialization.ReleaseAll(storages)

	for _, arg := range fs.Args()[1:] {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("input %q is not name=path: %w", arg, errUsage)
		}
		//nolint:gosec // G304: File path comes from the command line
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		s, err := storage.FromBytes(data)
		if err != nil {
			return err
		}
		storages[name] = s
	}

	w, err := serialization.NewWriter(fs.Arg(0))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, w.Close()) }()

	if err := w.WriteStorages(storages, meta); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %d storages to %s\n", len(storages), fs.Arg(0))
	return nil
}

// metadataFlag collects repeated key=value flags.
type metadataFlag map[string]string

func (m *metadataFlag) String() string {
	pairs := make([]string, 0, len(*m))
	for k, v := range *m {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (m *metadataFlag) Set(v string) error {
	key, value, ok := strings.Cut(v, "=")
	if !ok || key == "" {
		return fmt.Errorf("metadata %q is not key=value", v)
	}
	if *m == nil {
		*m = make(metadataFlag)
	}
	(*m)[key] = value
	return nil
}
