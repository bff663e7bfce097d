package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	accountlink "github.com/goliatone/go-accountlink"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// DefaultLabel names the embedded identity schema in plan errors.
const DefaultLabel = "go-accountlink"

const treeRoot = "data/sql/migrations"

// DialectForDriver maps a database/sql driver name to its migration dialect.
func DialectForDriver(driver string) (string, error) {
	switch strings.TrimSpace(strings.ToLower(driver)) {
	case "postgres", "pgx", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("migrations: no dialect for driver %q", driver)
	}
}

// Source is one directory of *.up.sql/*.down.sql files for a single dialect.
type Source struct {
	Label   string
	Dialect string
	Path    string
	FS      fs.FS
}

// Embedded returns the identity schema shipped with the module, one source
// per dialect.
func Embedded() ([]Source, error) {
	return FromTree(DefaultLabel, accountlink.GetMigrationsFS())
}

// FromTree splits a migration tree into per-dialect sources. Postgres files
// sit at the tree root and the sqlite alternatives under sqlite/. A tree that
// carries data/sql/migrations is read from there.
func FromTree(label string, tree fs.FS) ([]Source, error) {
	if tree == nil {
		return nil, fmt.Errorf("migrations: %s: tree is required", label)
	}
	root, rootPath := tree, "."
	if sub, err := fs.Sub(tree, treeRoot); err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			root, rootPath = sub, treeRoot
		}
	}
	sqliteFS, err := fs.Sub(root, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: %s: sqlite directory: %w", label, err)
	}
	sources := []Source{
		{Label: label, Dialect: DialectPostgres, Path: rootPath, FS: root},
		{Label: label, Dialect: DialectSQLite, Path: joinPath(rootPath, DialectSQLite), FS: sqliteFS},
	}
	for _, source := range sources {
		if _, err := upVersions(source); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

type planOptions struct {
	label string
	extra []Source
}

type Option func(*planOptions)

// WithLabel renames the embedded sources in plan errors, for hosts that
// vendor this schema under their own name.
func WithLabel(label string) Option {
	return func(o *planOptions) {
		if label = strings.TrimSpace(label); label != "" {
			o.label = label
		}
	}
}

// WithSources appends host sources after the embedded schema. Sources for
// other dialects are ignored by the plan.
func WithSources(sources ...Source) Option {
	return func(o *planOptions) {
		o.extra = append(o.extra, sources...)
	}
}

// Plan is the ordered list of sources applied for one dialect.
type Plan struct {
	Dialect string
	Sources []Source
}

// NewPlan selects the sources for dialect. Every source must ship at least one
// up migration and no version may appear in two sources, since bun keys
// applied migrations by name.
func NewPlan(dialect string, opts ...Option) (Plan, error) {
	dialect = strings.TrimSpace(strings.ToLower(dialect))
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return Plan{}, fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
	options := planOptions{label: DefaultLabel}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	embedded, err := Embedded()
	if err != nil {
		return Plan{}, err
	}
	for i := range embedded {
		embedded[i].Label = options.label
	}
	plan := Plan{Dialect: dialect}
	owners := map[string]string{}
	for _, source := range append(embedded, options.extra...) {
		if strings.TrimSpace(strings.ToLower(source.Dialect)) != dialect {
			continue
		}
		if strings.TrimSpace(source.Label) == "" {
			return Plan{}, fmt.Errorf("migrations: %s source at %q needs a label", dialect, source.Path)
		}
		versions, err := upVersions(source)
		if err != nil {
			return Plan{}, err
		}
		for _, version := range versions {
			if owner, taken := owners[version]; taken {
				return Plan{}, fmt.Errorf("migrations: version %s is shipped by both %s and %s", version, owner, source.Label)
			}
			owners[version] = source.Label
		}
		plan.Sources = append(plan.Sources, source)
	}
	return plan, nil
}

// Apply hands each source to register in plan order.
func (p Plan) Apply(ctx context.Context, register func(context.Context, Source) error) error {
	if register == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	for _, source := range p.Sources {
		if err := register(ctx, source); err != nil {
			return fmt.Errorf("migrations: register %s %s (%s): %w", source.Label, p.Dialect, source.Path, err)
		}
	}
	return nil
}

// Versions lists every up migration in the plan in apply order.
func (p Plan) Versions() []string {
	versions := []string{}
	for _, source := range p.Sources {
		found, err := upVersions(source)
		if err != nil {
			continue
		}
		versions = append(versions, found...)
	}
	return versions
}

// Versions lists the embedded up migrations for dialect in apply order.
func Versions(dialect string) ([]string, error) {
	plan, err := NewPlan(dialect)
	if err != nil {
		return nil, err
	}
	return plan.Versions(), nil
}

func upVersions(source Source) ([]string, error) {
	if source.FS == nil {
		return nil, fmt.Errorf("migrations: %s %s source has no filesystem", source.Label, source.Dialect)
	}
	matches, err := fs.Glob(source.FS, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("migrations: %s %s: %w", source.Label, source.Dialect, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("migrations: %s %s source %q has no *.up.sql files", source.Label, source.Dialect, source.Path)
	}
	versions := make([]string, 0, len(matches))
	for _, match := range matches {
		versions = append(versions, strings.TrimSuffix(match, ".up.sql"))
	}
	slices.Sort(versions)
	return versions, nil
}

func joinPath(base string, name string) string {
	if base == "." {
		return name
	}
	return base + "/" + name
}
