package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

// ExcludedAccounts is the content of an exclude file: accounts that should
// never be shown again, for example because they were already contacted.
type ExcludedAccounts struct {
	Items []ExcludedAccount `json:"items"`
}

type ExcludedAccount struct {
	Username string `json:"username"`
	Reason   string `json:"reason,omitempty"`
}

func (e *ExcludedAccounts) Usernames() []string {
	names := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		names = append(names, analysis.NormalizeHandle(item.Username))
	}
	return names
}

// LoadExcludedAccounts reads an exclude file. An empty file excludes nothing.
func LoadExcludedAccounts(path string) (*ExcludedAccounts, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedAccounts{}, nil
	}

	var excluded ExcludedAccounts
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

// LoadOrCreateExcludedAccounts is LoadExcludedAccounts that treats a missing
// file as empty.
func LoadOrCreateExcludedAccounts(path string) (*ExcludedAccounts, error) {
	excluded, err := LoadExcludedAccounts(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedAccounts{}, nil
	}
	return excluded, err
}

// Append adds accounts that are not listed yet and returns how many were new.
func (e *ExcludedAccounts) Append(items ...ExcludedAccount) int {
	seen := make(map[string]struct{}, len(e.Items))
	for _, name := range e.Usernames() {
		seen[name] = struct{}{}
	}

	added := 0
	for _, item := range items {
		name := analysis.NormalizeHandle(item.Username)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		e.Items = append(e.Items, ExcludedAccount{Username: name, Reason: item.Reason})
		added++
	}
	return added
}

func (e *ExcludedAccounts) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

type excludeFileFilter struct {
	path   string
	logger *zap.Logger
}

// NewExcludeFile creates a filter that removes accounts listed in an exclude
// file.
func NewExcludeFile(path string, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &excludeFileFilter{path: strings.TrimSpace(path), logger: logger}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate() error { return nil }

func (f *excludeFileFilter) Apply(_ context.Context, set *analysis.ResultSet) (*analysis.ResultSet, Step, error) {
	initial := set.Len()
	if f.path == "" {
		return set, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	excluded, err := LoadExcludedAccounts(f.path)
	if err != nil {
		return set, Step{}, fmt.Errorf("getting excluded accounts from file: %w", err)
	}

	skip := make(map[string]struct{}, len(excluded.Items))
	for _, name := range excluded.Usernames() {
		skip[name] = struct{}{}
	}

	out, removed := keep(set, func(r *analysis.InfluencerResult) bool {
		_, ok := skip[r.Username]
		return !ok
	})

	if len(removed) > 0 {
		f.logger.Info("excluding accounts based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_accounts", removed),
			zap.Int("accounts_left", out.Len()),
		)
	}

	return out, Step{Initial: initial, Dropped: len(removed), Left: out.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
