package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/born-ml/storagebridge/internal/binding"
	"github.com/born-ml/storagebridge/internal/config"
	"github.com/born-ml/storagebridge/internal/host"
	"github.com/born-ml/storagebridge/internal/storage"
)

// runTrace wraps a fresh storage, lends it out, and tears the wrapper down,
// printing the storage refcount after each step. The expected output is
// "1,1,1,1,0".
func runTrace(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	fs.SetOutput(out)
	cfgPath := fs.String("config", "", "YAML configuration file")
	nbytes := fs.Int("bytes", 64, "storage size in bytes")
	share := fs.Bool("share", false, "move the storage into a shared file first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if *cfgPath != "" {
		if cfg, err = config.Load(*cfgPath); err != nil {
			return err
		}
	}

	logger, err := cfg.Log.Build()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	storage.SetLogger(logger)
	host.SetLogger(logger)

	rt, err := host.NewRuntime(cfg.Host, host.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, rt.Close()) }()

	mod, err := rt.NewModule(cfg.Host.Name)
	if err != nil {
		return err
	}
	b, err := binding.Init(rt, mod)
	if err != nil {
		return err
	}
	if err := rt.RunPostInit(); err != nil {
		return err
	}

	s, err := storage.New(*nbytes, cfg.StorageOptions()...)
	if err != nil {
		return err
	}
	if *share {
		name, err := s.ShareFilename(cfg.Storage.SharedDir)
		if err != nil {
			s.Release()
			return err
		}
		fmt.Fprintf(out, "shared: %s\n", name)
	}

	seq, err := traceSequence(rt, b, s)
	if err != nil {
		return err
	}

	parts := make([]string, len(seq))
	for i, n := range seq {
		parts[i] = strconv.Itoa(n)
	}
	fmt.Fprintln(out, strings.Join(parts, ","))
	logger.Info("trace finished", zap.Ints("refcounts", seq))
	return nil
}

// traceSequence consumes s. Under the gc collector the last value is read
// once the collector has torn the wrapper down.
func traceSequence(rt *host.Runtime, b *binding.Binding, s storage.Storage) ([]int, error) {
	observer := s.Weak()
	defer observer.Release()

	seq := []int{observer.UseCount()}
	if err := wrapAndLend(rt, b, s, observer, &seq); err != nil {
		return nil, err
	}
	if rt.Config().Collector == host.CollectorGC {
		if err := awaitCollection(observer, collectTimeout); err != nil {
			return nil, err
		}
	}
	return append(seq, observer.UseCount()), nil
}

// wrapAndLend wraps s, lends it out once and drops the host reference.
// The wrapper does not outlive this call.
func wrapAndLend(rt *host.Runtime, b *binding.Binding, s storage.Storage, observer storage.WeakStorage, seq *[]int) error {
	obj, err := b.New(s)
	if err != nil {
		return err
	}
	*seq = append(*seq, observer.UseCount())

	view := storage.Borrowed(binding.Unpack(obj))
	*seq = append(*seq, view.Get().UseCount())
	view.Release()
	*seq = append(*seq, observer.UseCount())

	return rt.Decref(obj)
}

const collectTimeout = 5 * time.Second

var errNotCollected = errors.New("storage wrapper was not collected")

// awaitCollection runs the garbage collector until w expires.
func awaitCollection(w storage.WeakStorage, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !w.Expired() {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w within %s", errNotCollected, timeout)
		}
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}
