// Package implscan checks implementation coverage. Source trees annotated
// with traceability comments (Implements: REQ-01, TASK-01-02) are scanned
// for requirement and task IDs, and the found set is compared against the
// IDs the spec documents define.
package implscan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/speclint/document"
)

// idTokenRe matches requirement and task IDs inside comment text. Digit
// counts are not enforced here; Compare classifies undefined IDs as unknown.
var idTokenRe = regexp.MustCompile(`\b(?:REQ|TASK)-[0-9]+(?:-[0-9]+)*\b`)

// DefaultSkipDirs are directory names pruned during a scan.
var DefaultSkipDirs = []string{".git", "vendor", "node_modules", "__pycache__", "dist", "target"}

// Annotation is one ID reference found in a source comment.
type Annotation struct {
	ID   string `json:"id"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// ScanResult is the raw outcome of walking one source tree.
type ScanResult struct {
	Annotations  []Annotation `json:"annotations"`
	ScannedFiles int          `json:"scannedFiles"`
}

// Scanner extracts annotations from source trees.
type Scanner struct {
	// SkipDirs overrides DefaultSkipDirs when non-nil. Test directories
	// belong here when tests should not count as implementations.
	SkipDirs []string

	logger *slog.Logger
}

// NewScanner returns a scanner logging through logger. A nil logger uses
// slog.Default().
func NewScanner(logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{logger: logger}
}

// Scan walks root and extracts annotations from every supported source
// file. Files that fail to parse are logged and skipped; the scan itself
// fails only on walk errors.
func (s *Scanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	res := &ScanResult{}
	skip := s.skipSet()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && skip[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !supportedExt(ext) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		anns, err := s.scanFile(ctx, path, rel, ext)
		if err != nil {
			s.logger.Debug("skipping unparseable source file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		res.ScannedFiles++
		res.Annotations = append(res.Annotations, anns...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return res, nil
}

func (s *Scanner) skipSet() map[string]bool {
	dirs := s.SkipDirs
	if dirs == nil {
		dirs = DefaultSkipDirs
	}
	set := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		set[d] = true
	}
	return set
}

func (s *Scanner) scanFile(ctx context.Context, path, rel, ext string) ([]Annotation, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var anns []Annotation
	collect := func(text string, line int) {
		anns = append(anns, annotationsIn(rel, text, line)...)
	}

	if ext == ".go" {
		err = goComments(path, content, collect)
	} else {
		err = sitterComments(ctx, ext, content, collect)
	}
	if err != nil {
		return nil, err
	}
	return anns, nil
}

// annotationsIn extracts every ID token from one comment, placing each on
// its source line within multi line comments.
func annotationsIn(file, text string, startLine int) []Annotation {
	var anns []Annotation
	for _, loc := range idTokenRe.FindAllStringIndex(text, -1) {
		anns = append(anns, Annotation{
			ID:   text[loc[0]:loc[1]],
			File: file,
			Line: startLine + strings.Count(text[:loc[0]], "\n"),
		})
	}
	return anns
}

// Report compares scanned annotations with the IDs the spec trio defines.
type Report struct {
	Annotations  []Annotation `json:"annotations"`
	ScannedFiles int          `json:"scannedFiles"`

	// ImplementedRequirements and ImplementedTasks map each defined,
	// referenced ID to the files referencing it.
	ImplementedRequirements map[string][]string `json:"implementedRequirements"`
	ImplementedTasks        map[string][]string `json:"implementedTasks"`

	// UnreferencedRequirements are defined REQ IDs no comment mentions;
	// UnimplementedTasks the same for task IDs.
	UnreferencedRequirements []string `json:"unreferencedRequirements"`
	UnimplementedTasks       []string `json:"unimplementedTasks"`

	// UnknownIDs are annotations naming IDs the specs do not define.
	UnknownIDs []Annotation `json:"unknownIds"`
}

// Covered reports whether every defined task has an implementation and no
// annotation names an unknown ID. Unreferenced requirements alone do not
// fail coverage; requirements are realized through tasks.
func (r *Report) Covered() bool {
	return len(r.UnimplementedTasks) == 0 && len(r.UnknownIDs) == 0
}

// Compare builds the coverage report. A nil requirements or tasks document
// removes that axis from the comparison; its annotations are then recorded
// but not classified.
func Compare(res *ScanResult, requirements, tasks *document.Document) *Report {
	rep := &Report{
		Annotations:             res.Annotations,
		ScannedFiles:            res.ScannedFiles,
		ImplementedRequirements: map[string][]string{},
		ImplementedTasks:        map[string][]string{},
	}

	reqIDs := definedRequirementIDs(requirements)
	taskIDs := definedTaskIDs(tasks)

	for _, ann := range res.Annotations {
		switch {
		case strings.HasPrefix(ann.ID, "REQ-"):
			rep.classify(ann, reqIDs, requirements != nil, rep.ImplementedRequirements)
		case strings.HasPrefix(ann.ID, "TASK-"):
			rep.classify(ann, taskIDs, tasks != nil, rep.ImplementedTasks)
		}
	}

	rep.UnreferencedRequirements = missingKeys(reqIDs, rep.ImplementedRequirements)
	rep.UnimplementedTasks = missingKeys(taskIDs, rep.ImplementedTasks)
	return rep
}

func (r *Report) classify(ann Annotation, defined map[string]bool, checked bool, implemented map[string][]string) {
	if !checked {
		return
	}
	if !defined[ann.ID] {
		r.UnknownIDs = append(r.UnknownIDs, ann)
		return
	}
	files := implemented[ann.ID]
	for _, f := range files {
		if f == ann.File {
			return
		}
	}
	implemented[ann.ID] = append(files, ann.File)
}

func missingKeys(defined map[string]bool, implemented map[string][]string) []string {
	missing := []string{}
	for id := range defined {
		if _, ok := implemented[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}

func definedRequirementIDs(doc *document.Document) map[string]bool {
	ids := map[string]bool{}
	if doc == nil {
		return ids
	}
	for _, r := range doc.Requirements() {
		if strings.HasPrefix(r.ID, "REQ-") {
			ids[r.ID] = true
		}
	}
	return ids
}

func definedTaskIDs(doc *document.Document) map[string]bool {
	ids := map[string]bool{}
	if doc == nil {
		return ids
	}
	for _, t := range doc.Tasks() {
		if t.ID != "" {
			ids[t.ID] = true
		}
	}
	return ids
}
