package plan

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ID identifies a logical node. Values derived from a node by fluent mutators share
// its ID.
type ID = ulid.ULID

// Resources answers existence checks for files referenced by datasets and multipart
// bodies.
type Resources interface {
	Stat(name string) (fs.FileInfo, error)
}

type osResources struct{}

func (osResources) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }

// Builder holds the immutable context every element is constructed against: the
// delegate that materializes elements, the logger and the resource accessor. Separate
// builders never share state, so several engines can be used side by side.
type Builder struct {
	delegate  Delegate
	logger    *zap.Logger
	resources Resources
	now       func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for attachment traces and run failures.
// Without it nothing is logged; an *ExecutionError then still carries its
// trace, printed by %+v.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithResources replaces the file-existence checker (os.Stat by default).
func WithResources(r Resources) Option {
	return func(b *Builder) {
		if r != nil {
			b.resources = r
		}
	}
}

// WithClock replaces time.Now, used for default report directory names.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder returns a Builder bound to d.
func NewBuilder(d Delegate, opts ...Option) (*Builder, error) {
	if d == nil {
		return nil, errors.New("delegate cannot be nil")
	}
	b := &Builder{
		delegate:  d,
		logger:    zap.NewNop(),
		resources: osResources{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Logger returns the builder's logger.
func (b *Builder) Logger() *zap.Logger { return b.logger }

func (b *Builder) requireFile(path string) error {
	info, err := b.resources.Stat(path)
	if err != nil {
		return &NotFoundError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &NotFoundError{Path: path, Err: fs.ErrInvalid}
	}
	return nil
}
