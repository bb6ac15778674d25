// Package specset locates and loads the requirements, design and tasks
// documents of one feature. Paths may be local files or http(s) URLs;
// remote pages are reduced to their main content and converted to Markdown.
// Loaded content is cached per path until Invalidate.
package specset

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/parser"
)

// Conventional locations of the trio, relative to a feature root.
const (
	DefaultRequirementsPath = "specs/requirements.md"
	DefaultDesignPath       = "specs/design.md"
	DefaultTasksPath        = "specs/tasks.md"
)

// SpecSet names the three documents of one feature. Paths left empty load
// as empty content, so partial sets validate without their companions.
type SpecSet struct {
	RequirementsPath string
	DesignPath       string
	TasksPath        string

	// Language is the configured output language. LanguageAuto defers to
	// detection; Load reports what it detected.
	Language document.Language

	// Client serves http(s) paths. Nil falls back to a shared client with
	// a 30 second timeout.
	Client *http.Client

	mu    sync.Mutex
	cache map[string]string
}

// New builds a set over explicit paths.
func New(requirementsPath, designPath, tasksPath string, lang document.Language) *SpecSet {
	return &SpecSet{
		RequirementsPath: requirementsPath,
		DesignPath:       designPath,
		TasksPath:        tasksPath,
		Language:         lang,
	}
}

// Default returns the conventional specs directory trio rooted at dir.
func Default(dir string) *SpecSet {
	return New(
		filepath.Join(dir, filepath.FromSlash(DefaultRequirementsPath)),
		filepath.Join(dir, filepath.FromSlash(DefaultDesignPath)),
		filepath.Join(dir, filepath.FromSlash(DefaultTasksPath)),
		document.LanguageAuto,
	)
}

// Contents holds the loaded Markdown of a trio.
type Contents struct {
	Requirements string
	Design       string
	Tasks        string

	// Language is the set's configured language, or the language detected
	// from the first non-empty document when the set is on auto.
	Language document.Language
}

// Load fetches all three documents.
func (s *SpecSet) Load(ctx context.Context) (*Contents, error) {
	reqs, err := s.load(ctx, s.RequirementsPath)
	if err != nil {
		return nil, err
	}
	design, err := s.load(ctx, s.DesignPath)
	if err != nil {
		return nil, err
	}
	tasks, err := s.load(ctx, s.TasksPath)
	if err != nil {
		return nil, err
	}

	c := &Contents{Requirements: reqs, Design: design, Tasks: tasks, Language: s.Language}
	if c.Language == document.LanguageAuto || c.Language == "" {
		c.Language = detectFrom(reqs, design, tasks)
	}
	return c, nil
}

// Requirements loads the requirements document content.
func (s *SpecSet) Requirements(ctx context.Context) (string, error) {
	return s.load(ctx, s.RequirementsPath)
}

// Design loads the design document content.
func (s *SpecSet) Design(ctx context.Context) (string, error) {
	return s.load(ctx, s.DesignPath)
}

// Tasks loads the tasks document content.
func (s *SpecSet) Tasks(ctx context.Context) (string, error) {
	return s.load(ctx, s.TasksPath)
}

// Invalidate drops cached content so the next load re-reads every path.
func (s *SpecSet) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
}

func (s *SpecSet) load(ctx context.Context, p string) (string, error) {
	if p == "" {
		return "", nil
	}

	s.mu.Lock()
	if text, ok := s.cache[p]; ok {
		s.mu.Unlock()
		return text, nil
	}
	s.mu.Unlock()

	text, err := s.read(ctx, p)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.cache == nil {
		s.cache = map[string]string{}
	}
	s.cache[p] = text
	s.mu.Unlock()
	return text, nil
}

func detectFrom(texts ...string) document.Language {
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			return parser.DetectLanguage(t)
		}
	}
	return document.LanguageJapanese
}

// Discover finds spec sets under root. Each pattern is a doublestar glob,
// relative to root, matching requirements files; the matched file's
// directory supplies the conventional design and tasks siblings when they
// exist. Nil patterns search for the conventional layout anywhere under
// root.
func Discover(root string, patterns []string) ([]*SpecSet, error) {
	if root == "" {
		root = "."
	}
	if len(patterns) == 0 {
		patterns = []string{"**/requirements.md"}
	}

	fsys := os.DirFS(root)
	seen := map[string]bool{}
	var sets []*SpecSet

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := fs.Stat(fsys, m); err != nil || info.IsDir() {
				continue
			}
			dir := path.Dir(m)
			if seen[dir] {
				continue
			}
			seen[dir] = true
			sets = append(sets, discovered(root, dir, m))
		}
	}

	sort.Slice(sets, func(i, j int) bool {
		return sets[i].RequirementsPath < sets[j].RequirementsPath
	})
	return sets, nil
}

// discovered builds the set for one matched requirements file.
func discovered(root, dir, match string) *SpecSet {
	sibling := func(name string) string {
		p := filepath.Join(root, filepath.FromSlash(dir), name)
		if info, err := os.Stat(p); err != nil || info.IsDir() {
			return ""
		}
		return p
	}
	return New(
		filepath.Join(root, filepath.FromSlash(match)),
		sibling("design.md"),
		sibling("tasks.md"),
		document.LanguageAuto,
	)
}
