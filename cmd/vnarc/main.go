// Command vnarc lists, extracts, and patches visual novel archives.
//
// Usage:
//
//	vnarc list [-digest] ARCHIVE
//	vnarc extract -o DIR ARCHIVE...
//	vnarc replace [-temp-dir DIR] ARCHIVE NAME FILE
//
// Global flags (-v, -sjis) go before the command.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/encoding/japanese"

	"github.com/meigma/vnarc"
	"github.com/meigma/vnarc/internal/pathutil"
)

var errUsage = errors.New("usage: vnarc [-v] [-sjis] list|extract|replace ...")

type config struct {
	verbose  bool
	shiftJIS bool
	logger   *slog.Logger
	stdout   io.Writer
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "vnarc:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	var cfg config
	fs := flag.NewFlagSet("vnarc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.verbose, "v", false, "enable debug logging")
	fs.BoolVar(&cfg.shiftJIS, "sjis", false, "decode entry names as Shift-JIS")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	cfg.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	cfg.stdout = stdout

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}
	switch rest[0] {
	case "list":
		return runList(&cfg, rest[1:])
	case "extract":
		return runExtract(&cfg, rest[1:])
	case "replace":
		return runReplace(&cfg, rest[1:])
	default:
		return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
	}
}

func (c *config) options(extra ...vnarc.Option) []vnarc.Option {
	opts := []vnarc.Option{vnarc.WithLogger(c.logger)}
	if c.shiftJIS {
		opts = append(opts, vnarc.WithNameEncoding(japanese.ShiftJIS))
	}
	return append(opts, extra...)
}

func runList(cfg *config, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	withDigest := fs.Bool("digest", false, "print the sha256 digest of each extracted entry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: vnarc list [-digest] ARCHIVE")
	}

	a, err := vnarc.OpenFile(fs.Arg(0), vnarc.ModeRead, cfg.options()...)
	if err != nil {
		return err
	}
	defer a.Close()

	major, minor := a.Version()
	fmt.Fprintf(cfg.stdout, "# %s %d.%d, %d entries\n", a.Format(), major, minor, a.Len())

	tw := tabwriter.NewWriter(cfg.stdout, 0, 4, 2, ' ', 0)
	for _, e := range a.Entries() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s", e.ID(), e.Compression(), e.CompressedSize(), e.UncompressedSize(), e.Name())
		if *withDigest {
			d, err := entryDigest(e)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "\t%s", d)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func entryDigest(e *vnarc.Entry) (digest.Digest, error) {
	r, err := e.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()
	d, err := digest.SHA256.FromReader(r)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", e.Name(), err)
	}
	return d, nil
}

func runExtract(cfg *config, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	out := fs.String("o", ".", "output directory")
	workers := fs.Int("j", 4, "archives extracted in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("usage: vnarc extract -o DIR ARCHIVE...")
	}

	var g errgroup.Group
	g.SetLimit(max(*workers, 1))
	for _, path := range fs.Args() {
		dest := *out
		if fs.NArg() > 1 {
			base := filepath.Base(path)
			dest = filepath.Join(*out, strings.TrimSuffix(base, filepath.Ext(base)))
		}
		g.Go(func() error {
			return extractArchive(cfg, path, dest)
		})
	}
	return g.Wait()
}

// extractArchive writes every entry of the archive at path below dest. Each
// call opens its own Archive, so archives extract independently.
func extractArchive(cfg *config, path, dest string) error {
	a, err := vnarc.OpenFile(path, vnarc.ModeRead, cfg.options()...)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return fmt.Errorf("open %s: %w", dest, err)
	}
	defer root.Close()

	for _, e := range a.Entries() {
		if err := extractEntry(root, e); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.logger.Info("extracted", slog.String("archive", path), slog.String("dest", dest), slog.Int("entries", a.Len()))
	return nil
}

func extractEntry(root *os.Root, e *vnarc.Entry) error {
	name, ok := pathutil.Local(e.Name())
	if !ok {
		return fmt.Errorf("entry %d: unsafe name %q", e.ID(), e.Name())
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := root.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	r, err := e.Open()
	if err != nil {
		return err
	}
	defer r.Close()

	f, err := root.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}

func runReplace(cfg *config, args []string) error {
	fs := flag.NewFlagSet("replace", flag.ContinueOnError)
	tempDir := fs.String("temp-dir", "", "directory for the temporary rewrite (default: memory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return errors.New("usage: vnarc replace [-temp-dir DIR] ARCHIVE NAME FILE")
	}
	path, name, file := fs.Arg(0), fs.Arg(1), fs.Arg(2)

	src, err := os.Open(file) //nolint:gosec // User-provided path is intentional
	if err != nil {
		return err
	}
	defer src.Close()

	a, err := vnarc.OpenFile(path, vnarc.ModeUpdate, cfg.options(vnarc.WithTempDir(*tempDir))...)
	if err != nil {
		return err
	}
	defer a.Close()

	e, err := a.Lookup(name)
	if err != nil {
		return err
	}
	if err := e.Replace(src); err != nil {
		return err
	}
	if err := a.SaveChanges(); err != nil {
		return err
	}
	cfg.logger.Info("replaced", slog.String("archive", path), slog.String("entry", e.Name()), slog.Uint64("size", e.UncompressedSize()))
	return nil
}
