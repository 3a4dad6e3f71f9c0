// Package loader discovers unit files in a two-level tree (category/file),
// decodes them concurrently and reports what loaded and what did not.
//
// The same walk serves three variants: prefix commands, events and remote
// (slash) commands. A malformed file is recorded as a failure and never
// aborts its siblings.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/keshon/commandhub/pkg/util"

	"github.com/rs/zerolog"
)

// File is one unit source handed to a variant's parser.
type File struct {
	Category string
	Name     string
	Path     string
	Data     []byte
	ModTime  time.Time
}

// Variant describes how one kind of unit is parsed and validated.
type Variant[T any] struct {
	Kind string
	// Parse decodes, validates and stamps a unit. Returning a
	// *ValidationError marks the file invalid; any other error marks it
	// failed. Both are counted the same way.
	Parse func(f File) (T, string, error)
}

// Options tune a load run.
type Options struct {
	Workers int
	Log     zerolog.Logger
}

// Result is what a load run produced. Units are ordered by path.
type Result[T any] struct {
	Units  []T
	Report Report
}

type outcome[T any] struct {
	unit T
	ok   bool
	row  Row
}

// Load walks fsys (rooted at the variant's base directory), parses every
// unit file and returns the successfully parsed units plus a report.
// An unreadable root or a canceled ctx fails the whole run; the caller
// keeps whatever it had before.
func Load[T any](ctx context.Context, fsys fs.FS, v Variant[T], opts Options) (Result[T], error) {
	start := time.Now()
	log := opts.Log.With().Str("kind", v.Kind).Logger()

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return Result[T]{Report: Report{Kind: v.Kind}}, fmt.Errorf("read %s base directory: %w", v.Kind, err)
	}

	var categories []string
	for _, e := range entries {
		if e.IsDir() {
			categories = append(categories, e.Name())
		}
	}

	perCategory := make([][]outcome[T], len(categories))

	err = util.Parallel(ctx, categories, opts.Workers, func(ctx context.Context, ci int, category string) error {
		files, err := unitFiles(fsys, category)
		if err != nil {
			log.Error().Err(err).Str("category", category).Msg("failed to read unit category")
			return nil
		}

		results := make([]outcome[T], len(files))
		err = util.Parallel(ctx, files, opts.Workers, func(_ context.Context, fi int, name string) error {
			results[fi] = loadOne(fsys, v, category, name, log)
			return nil
		})
		perCategory[ci] = results
		return err
	})
	if err != nil || ctx.Err() != nil {
		return Result[T]{Report: Report{Kind: v.Kind}}, fmt.Errorf("%s load interrupted: %w", v.Kind, errors.Join(err, ctx.Err()))
	}

	var all []outcome[T]
	for _, results := range perCategory {
		all = append(all, results...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].row.Path < all[j].row.Path })

	var res Result[T]
	res.Report.Kind = v.Kind
	for _, o := range all {
		res.Report.Rows = append(res.Report.Rows, o.row)
		if o.ok {
			res.Units = append(res.Units, o.unit)
			res.Report.Loaded++
		} else {
			res.Report.Failed++
		}
	}
	res.Report.Elapsed = time.Since(start)
	return res, nil
}

func loadOne[T any](fsys fs.FS, v Variant[T], category, name string, log zerolog.Logger) outcome[T] {
	p := path.Join(category, name)
	row := Row{Category: category, Unit: strings.TrimSuffix(name, path.Ext(name)), Path: p}

	fail := func(err error) outcome[T] {
		row.Status = StatusError
		if IsValidation(err) {
			row.Status = StatusInvalid
			log.Warn().Str("path", p).Err(err).Msg("invalid unit")
		} else {
			log.Error().Str("path", p).Err(err).Msg("failed to load unit")
		}
		row.Detail = err.Error()
		var zero T
		return outcome[T]{unit: zero, row: row}
	}

	info, err := fs.Stat(fsys, p)
	if err != nil {
		return fail(err)
	}
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return fail(err)
	}

	u, label, err := v.Parse(File{
		Category: category,
		Name:     name,
		Path:     p,
		Data:     data,
		ModTime:  info.ModTime(),
	})
	if err != nil {
		return fail(err)
	}
	row.Unit = label
	row.Status = StatusOK
	return outcome[T]{unit: u, ok: true, row: row}
}

// unitFiles lists loadable files of a category: yaml only, "_" prefixed
// files are drafts and skipped.
func unitFiles(fsys fs.FS, category string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, category)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "_") {
			continue
		}
		switch strings.ToLower(path.Ext(name)) {
		case ".yaml", ".yml":
			out = append(out, name)
		}
	}
	return out, nil
}
