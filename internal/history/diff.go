package history

import (
	"context"
	"sort"
)

// Change is a fixture whose verdict differs between two runs.
type Change struct {
	Path   string `json:"path"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Diff compares two runs fixture by fixture.
type Diff struct {
	From string `json:"from"`
	To   string `json:"to"`
	// Regressions passed in From and fail in To.
	Regressions []Change `json:"regressions"`
	// Fixes failed in From and pass in To.
	Fixes []Change `json:"fixes"`
	// Changed holds every other verdict change, such as pass to skip.
	Changed []Change `json:"changed"`
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	// Edited lists fixtures present in both runs whose contents changed.
	Edited []string `json:"edited"`
}

// Empty reports whether the runs agree on every verdict.
func (d *Diff) Empty() bool {
	return len(d.Regressions)+len(d.Fixes)+len(d.Changed)+len(d.Added)+len(d.Removed) == 0
}

// Diff compares run from against run to. Both accept ID prefixes.
func (h *DB) Diff(ctx context.Context, from, to string) (*Diff, error) {
	a, err := h.GetRun(ctx, from)
	if err != nil {
		return nil, err
	}
	b, err := h.GetRun(ctx, to)
	if err != nil {
		return nil, err
	}
	before, err := h.Results(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	after, err := h.Results(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	d := DiffResults(before, after)
	d.From, d.To = a.ID, b.ID
	return d, nil
}

// DiffResults compares two result lists by path.
func DiffResults(before, after []Result) *Diff {
	d := &Diff{}
	old := make(map[string]Result, len(before))
	for _, r := range before {
		old[r.Path] = r
	}

	seen := make(map[string]bool, len(after))
	for _, r := range after {
		seen[r.Path] = true
		prev, ok := old[r.Path]
		if !ok {
			d.Added = append(d.Added, r.Path)
			continue
		}
		if prev.FixtureHash != "" && r.FixtureHash != "" && prev.FixtureHash != r.FixtureHash {
			d.Edited = append(d.Edited, r.Path)
		}
		if prev.Verdict == r.Verdict {
			continue
		}
		c := Change{Path: r.Path, Before: prev.Verdict, After: r.Verdict}
		switch {
		case prev.Verdict == "pass" && r.Verdict == "fail":
			d.Regressions = append(d.Regressions, c)
		case prev.Verdict == "fail" && r.Verdict == "pass":
			d.Fixes = append(d.Fixes, c)
		default:
			d.Changed = append(d.Changed, c)
		}
	}
	for _, r := range before {
		if !seen[r.Path] {
			d.Removed = append(d.Removed, r.Path)
		}
	}

	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Edited)
	for _, cs := range [][]Change{d.Regressions, d.Fixes, d.Changed} {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Path < cs[j].Path })
	}
	return d
}
