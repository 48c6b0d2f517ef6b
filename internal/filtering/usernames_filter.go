package filtering

import (
	"context"
	"strings"

	"github.com/jdh4601/ClosetBot/internal/analysis"
)

type usernamesFilter struct {
	usernames map[string]struct{}
	list      []string
}

// NewUsernames creates a filter that keeps only the listed candidates. An
// empty list keeps everyone.
func NewUsernames(usernames []string) Filter {
	f := &usernamesFilter{usernames: make(map[string]struct{}, len(usernames))}
	for _, u := range usernames {
		u = analysis.NormalizeHandle(u)
		if u == "" {
			continue
		}
		if _, ok := f.usernames[u]; !ok {
			f.list = append(f.list, u)
		}
		f.usernames[u] = struct{}{}
	}
	return f
}

func (f *usernamesFilter) Name() string { return "usernames" }

func (f *usernamesFilter) Disable(string) {}

func (f *usernamesFilter) IsEnabled() bool { return true }

func (f *usernamesFilter) Validate() error { return nil }

func (f *usernamesFilter) Apply(_ context.Context, set *analysis.ResultSet) (*analysis.ResultSet, Step, error) {
	initial := set.Len()
	if len(f.usernames) == 0 {
		return set, Step{Initial: initial, Dropped: 0, Left: initial}, nil
	}

	out, dropped := keep(set, func(r *analysis.InfluencerResult) bool {
		_, ok := f.usernames[r.Username]
		return ok
	})

	return out, Step{Initial: initial, Dropped: len(dropped), Left: out.Len()}, nil
}

func (f *usernamesFilter) Status() Status {
	details := map[string]string{}
	if len(f.list) > 0 {
		details["usernames"] = strings.Join(f.list, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}
