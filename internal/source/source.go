package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/fieldlens-cli/internal/pipeline"
)

// Options configures how a target is opened.
type Options struct {
	// Delimiter for CSV. If 0, it is chosen from the file extension.
	Delimiter rune
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
	// Table is the SQL table used when the target carries no table= parameter.
	Table string
	// MongoDatabase overrides the database named in the connection string.
	MongoDatabase   string
	MongoCollection string
	// MongoOwner restricts Mongo rows to one uploader (hex ObjectID).
	MongoOwner string
	// Timeout bounds connecting to a database; 0 means no extra bound.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Dataset is an opened source together with what it was opened from.
type Dataset struct {
	pipeline.Source
	// Name is a display name with credentials removed.
	Name  string
	Kind  string
	close func() error
}

// Close releases connections held by the dataset. It is safe to call on
// file-backed datasets.
func (d *Dataset) Close() error {
	if d == nil || d.close == nil {
		return nil
	}
	return d.close()
}

// Opener opens one family of targets.
type Opener interface {
	CanOpen(target string) bool
	Open(ctx context.Context, target string, opt Options) (*Dataset, error)
}

var registry []Opener

// Register adds an opener. Later registrations are consulted after earlier ones.
func Register(o Opener) {
	registry = append(registry, o)
}

// ErrUnsupported indicates that no opener recognizes the target.
var ErrUnsupported = errors.New("unsupported source")

// Open selects an opener for target and opens it.
func Open(ctx context.Context, target string, opt Options) (*Dataset, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: no source given (use --source or set source in config)", ErrUnsupported)
	}
	for _, o := range registry {
		if !o.CanOpen(target) {
			continue
		}
		ds, err := o.Open(ctx, target, opt)
		if err != nil {
			return nil, err
		}
		opt.logger().Debug("source opened", slog.String("kind", ds.Kind), slog.String("name", ds.Name))
		return ds, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, Redact(target))
}

func init() {
	Register(csvOpener{})
	Register(xlsxOpener{})
	Register(sqlOpener{})
	Register(mongoOpener{})
}

// Redact hides the password part of a URL-shaped target.
func Redact(target string) string {
	scheme, rest, ok := strings.Cut(target, "://")
	if !ok {
		return target
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return target
	}
	cred := rest[:at]
	if user, _, hasPass := strings.Cut(cred, ":"); hasPass {
		cred = user + ":***"
	}
	return scheme + "://" + cred + rest[at:]
}
