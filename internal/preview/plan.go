// Package preview reports what an extraction would do without writing anything.
package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/mcdonaldj/unpack/internal/adapters/osfs"
	"github.com/mcdonaldj/unpack/internal/pathresolve"
	"github.com/mcdonaldj/unpack/internal/ports"
)

// Action is the planned outcome for one entry.
type Action int

const (
	ActionNew         Action = iota // file does not exist yet
	ActionOverwrite                 // existing file would be truncated
	ActionCreateDir                 // directory would be created
	ActionExistingDir               // directory already exists
	ActionBlocked                   // a file/directory of the other kind is in the way
	ActionSkip                      // name cannot be decoded
	ActionReject                    // resolves outside the destination root
)

func (a Action) String() string {
	switch a {
	case ActionNew:
		return "new"
	case ActionOverwrite:
		return "overwrite"
	case ActionCreateDir:
		return "mkdir"
	case ActionExistingDir:
		return "exists"
	case ActionBlocked:
		return "blocked"
	case ActionSkip:
		return "skip"
	case ActionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// PlanItem describes one archive entry.
type PlanItem struct {
	Index        int
	Name         string
	Dest         string // empty for skipped and rejected entries
	Action       Action
	Size         uint64 // declared size in the archive
	ExistingSize int64  // size of the file that would be overwritten
}

// Planner inspects the destination through an injected filesystem.
type Planner struct {
	fs ports.FileSystem
}

// NewPlanner creates a new planner with the given filesystem.
func NewPlanner(fs ports.FileSystem) *Planner {
	return &Planner{fs: fs}
}

// NewDefaultPlanner creates a planner over the real filesystem.
func NewDefaultPlanner() *Planner {
	return NewPlanner(osfs.New())
}

// Plan classifies every entry of archive against rootDir, in index order.
func (p *Planner) Plan(archive ports.Archive, rootDir string) ([]PlanItem, error) {
	items := make([]PlanItem, 0, archive.Len())
	for i := 0; i < archive.Len(); i++ {
		entry, err := archive.EntryAt(i)
		if err != nil {
			return nil, fmt.Errorf("reading entry %d: %w", i, err)
		}
		items = append(items, p.classify(i, rootDir, entry))
	}
	return items, nil
}

func (p *Planner) classify(index int, rootDir string, entry ports.Entry) PlanItem {
	item := PlanItem{Index: index, Name: entry.Name(), Size: entry.Size()}

	name, ok := pathresolve.EnclosedName(entry.Name())
	if !ok {
		item.Action = ActionSkip
		return item
	}
	dest, err := pathresolve.Resolve(rootDir, name)
	if err != nil {
		item.Action = ActionReject
		return item
	}
	item.Dest = dest

	isDir := strings.HasSuffix(name, pathresolve.Separator) || entry.IsDir()
	info, err := p.fs.Stat(dest)
	switch {
	case err != nil && !isNotExist(err):
		item.Action = ActionBlocked
	case err != nil && isDir:
		item.Action = ActionCreateDir
	case err != nil:
		item.Action = ActionNew
	case isDir && info.IsDir():
		item.Action = ActionExistingDir
	case isDir != info.IsDir():
		item.Action = ActionBlocked
	default:
		item.Action = ActionOverwrite
		item.ExistingSize = info.Size()
	}
	return item
}

// Summary counts plan items by action.
type Summary map[Action]int

// Summarize counts items by action.
func Summarize(items []PlanItem) Summary {
	s := make(Summary)
	for _, it := range items {
		s[it.Action]++
	}
	return s
}

// Find returns the entry whose stored name matches name,
// ignoring a trailing directory separator.
func Find(archive ports.Archive, name string) (ports.Entry, error) {
	want := strings.TrimSuffix(name, pathresolve.Separator)
	for i := 0; i < archive.Len(); i++ {
		entry, err := archive.EntryAt(i)
		if err != nil {
			return nil, fmt.Errorf("reading entry %d: %w", i, err)
		}
		if strings.TrimSuffix(entry.Name(), pathresolve.Separator) == want {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
}

// ErrEntryNotFound is returned when no entry has the requested name.
var ErrEntryNotFound = errors.New("entry not found in archive")

// isNotExist reports whether err means the path is absent.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
