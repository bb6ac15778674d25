// Package watch revalidates spec sets when their documents change on disk.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/c360studio/speclint/document/parser"
	"github.com/c360studio/speclint/report"
	"github.com/c360studio/speclint/specset"
	"github.com/c360studio/speclint/validation"
	"github.com/c360studio/speclint/validation/rules"
)

const (
	// eventChannelBuffer is the size of the watch event channel.
	eventChannelBuffer = 100

	// DefaultDebounce is how long changes accumulate before revalidation.
	DefaultDebounce = 500 * time.Millisecond
)

// Config configures spec document watching.
type Config struct {
	// Root is the directory tree to watch.
	Root string

	// Patterns lists doublestar patterns locating requirements documents.
	// Empty uses the specset default.
	Patterns []string

	// DebounceDelay is how long to wait for more changes before processing.
	// Zero uses DefaultDebounce.
	DebounceDelay time.Duration

	// ExcludeDirs lists directory names to skip (e.g., [".git", "node_modules"]).
	ExcludeDirs []string

	// RuleOptions adjust the rule set used for every revalidation.
	RuleOptions []rules.Option

	// Logger for logging events.
	Logger *slog.Logger
}

// Operation indicates the type of file operation.
type Operation string

// OpCreate, OpModify, and OpDelete enumerate the file watch operation types.
const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// Event represents a spec document change and the revalidation it triggered.
type Event struct {
	// Path is the file path relative to the watch root.
	Path string

	// Operation is the type of change.
	Operation Operation

	// Outcome holds the fresh validation results for the owning spec set.
	// Nil when the file belongs to no discovered set.
	Outcome *Outcome

	// Err is set when loading or validating the set failed.
	Err error
}

// Outcome is one validation run over a spec set. Results are nil for
// documents the set does not have.
type Outcome struct {
	Set          *specset.SpecSet
	Requirements *validation.Result
	Design       *validation.Result
	Tasks        *validation.Result
}

// Valid reports whether every present document passed validation.
func (o *Outcome) Valid() bool {
	for _, res := range []*validation.Result{o.Requirements, o.Design, o.Tasks} {
		if res != nil && !res.IsValid {
			return false
		}
	}
	return true
}

// Watcher watches for spec document changes and emits revalidation events.
type Watcher struct {
	config   Config
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	excludes map[string]bool

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	setsMu sync.RWMutex
	sets   []*specset.SpecSet

	// Output channel
	events chan Event

	// Metrics
	droppedEvents atomic.Int64
}

// NewWatcher creates a new spec document watcher.
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Root == "" {
		config.Root = "."
	}
	if config.DebounceDelay == 0 {
		config.DebounceDelay = DefaultDebounce
	}

	excludes := make(map[string]bool)
	if len(config.ExcludeDirs) == 0 {
		excludes[".git"] = true
		excludes["node_modules"] = true
		excludes["vendor"] = true
	} else {
		for _, dir := range config.ExcludeDirs {
			excludes[dir] = true
		}
	}

	return &Watcher{
		config:   config,
		watcher:  fsw,
		logger:   config.Logger,
		excludes: excludes,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Sets returns the currently discovered spec sets.
func (w *Watcher) Sets() []*specset.SpecSet {
	w.setsMu.RLock()
	defer w.setsMu.RUnlock()
	return append([]*specset.SpecSet(nil), w.sets...)
}

// Start discovers spec sets under the root and begins watching for changes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.refreshSets(); err != nil {
		return err
	}

	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Spec watcher started",
		"root", w.config.Root,
		"sets", len(w.Sets()),
		"debounce", w.config.DebounceDelay)

	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// RunAll validates every discovered spec set once and seeds the hash cache,
// so later events reflect real content changes.
func (w *Watcher) RunAll(ctx context.Context) ([]*Outcome, error) {
	sets := w.Sets()
	outcomes := make([]*Outcome, 0, len(sets))
	for _, set := range sets {
		outcome, err := w.validate(ctx, set)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
		w.seedHashes(set)
	}
	return outcomes, nil
}

// SetHash records the hash for a file.
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded hash for a file.
func (w *Watcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *Watcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

func (w *Watcher) refreshSets() error {
	sets, err := specset.Discover(w.config.Root, w.config.Patterns)
	if err != nil {
		return err
	}
	w.setsMu.Lock()
	w.sets = sets
	w.setsMu.Unlock()
	return nil
}

// setFor resolves the spec set a changed file belongs to: first by exact
// document path, then by the set's directory so sibling files and deleted
// documents still trigger revalidation.
func (w *Watcher) setFor(path string) *specset.SpecSet {
	clean := filepath.Clean(path)
	dir := filepath.Dir(clean)

	w.setsMu.RLock()
	defer w.setsMu.RUnlock()

	for _, set := range w.sets {
		for _, p := range []string{set.RequirementsPath, set.DesignPath, set.TasksPath} {
			if p != "" && filepath.Clean(p) == clean {
				return set
			}
		}
	}
	for _, set := range w.sets {
		if filepath.Dir(filepath.Clean(set.RequirementsPath)) == dir {
			return set
		}
	}
	return nil
}

func (w *Watcher) seedHashes(set *specset.SpecSet) {
	for _, p := range []string{set.RequirementsPath, set.DesignPath, set.TasksPath} {
		if p == "" || specset.IsRemote(p) {
			continue
		}
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		w.SetHash(w.rel(p), parser.ContentHash(content))
	}
}

func (w *Watcher) rel(path string) string {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		return path
	}
	return rel
}

// addWatchesRecursive adds watches to all directories.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			return nil
		}

		// Skip excluded and hidden directories
		base := filepath.Base(path)
		if w.excludes[base] || (strings.HasPrefix(base, ".") && base != "." && path != root) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.config.DebounceDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !strings.EqualFold(filepath.Ext(path), ".md") {
		// But handle directory creation (for new watches)
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	// Skip files in excluded directories
	relPath := w.rel(path)
	for excludeDir := range w.excludes {
		if strings.Contains(relPath, excludeDir+string(filepath.Separator)) {
			return
		}
	}

	w.pendingMu.Lock()
	w.pending[path] = event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Spec document change detected",
		"path", relPath,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *Watcher) handleNewDirectory(path string) {
	base := filepath.Base(path)
	if w.excludes[base] || strings.HasPrefix(base, ".") {
		return
	}

	if err := w.watcher.Add(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending processes accumulated changes.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}

	toProcess := make(map[string]fsnotify.Op)
	for k, v := range w.pending {
		toProcess[k] = v
	}
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	for path, op := range toProcess {
		select {
		case <-ctx.Done():
			return
		default:
		}

		relPath := w.rel(path)

		if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
			w.hashMu.Lock()
			delete(w.hashes, relPath)
			w.hashMu.Unlock()

			w.handleChange(ctx, path, relPath, OpDelete)
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			w.handleChange(ctx, path, relPath, OpDelete)
			continue
		}

		content, err := os.ReadFile(path)
		if err != nil {
			w.logger.Warn("Failed to read file for hash check",
				"path", relPath,
				"error", err)
			continue
		}

		newHash := parser.ContentHash(content)

		// Check if content actually changed
		oldHash, hadHash := w.GetHash(relPath)
		if hadHash && oldHash == newHash {
			continue
		}
		w.SetHash(relPath, newHash)

		operation := OpModify
		if op.Has(fsnotify.Create) || !hadHash {
			operation = OpCreate
		}

		w.handleChange(ctx, path, relPath, operation)
	}
}

// handleChange rediscovers spec sets, revalidates the one owning the
// changed file and emits the event.
func (w *Watcher) handleChange(ctx context.Context, path, relPath string, op Operation) {
	if err := w.refreshSets(); err != nil {
		w.logger.Warn("Spec set discovery failed", "error", err)
	}

	event := Event{Path: relPath, Operation: op}
	if set := w.setFor(path); set != nil {
		set.Invalidate()
		outcome, err := w.validate(ctx, set)
		event.Outcome = outcome
		event.Err = err
	}
	w.sendEvent(event)
}

func (w *Watcher) validate(ctx context.Context, set *specset.SpecSet) (*Outcome, error) {
	contents, err := set.Load(ctx)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Set: set}
	if strings.TrimSpace(contents.Requirements) != "" {
		res, err := report.ValidateRequirements(contents.Requirements, contents.Language, w.config.RuleOptions...)
		if err != nil {
			return nil, err
		}
		outcome.Requirements = res
	}
	if strings.TrimSpace(contents.Design) != "" {
		res, err := report.ValidateDesign(contents.Design, contents.Language, contents.Requirements, w.config.RuleOptions...)
		if err != nil {
			return nil, err
		}
		outcome.Design = res
	}
	if strings.TrimSpace(contents.Tasks) != "" {
		res, err := report.ValidateTasks(contents.Tasks, contents.Language, contents.Requirements, contents.Design, w.config.RuleOptions...)
		if err != nil {
			return nil, err
		}
		outcome.Tasks = res
	}
	return outcome, nil
}

// sendEvent sends an event to the output channel.
func (w *Watcher) sendEvent(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event",
			"path", event.Path,
			"op", event.Operation)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"path", event.Path,
			"total_dropped", dropped)
	}
}
