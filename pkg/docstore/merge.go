package docstore

import (
	"github.com/tessera-archive/tessera/pkg/site"
)

// MergeMode is how one collection is integrated on pull.
type MergeMode string

const (
	// Overwrite takes the remote collection as is.
	Overwrite MergeMode = "overwrite"
	// UnionByID keeps local-only entities in front of the remote ones.
	// On an id present on both sides the remote entity wins.
	UnionByID MergeMode = "union-by-id"
)

// MergePolicy maps each collection to its MergeMode. Collections missing
// from the table are overwritten.
type MergePolicy map[site.Collection]MergeMode

// DefaultMergePolicy overwrites posts and announcements and unions
// messages, so contact submissions received locally but not yet pushed
// survive a pull.
func DefaultMergePolicy() MergePolicy {
	return MergePolicy{
		site.Posts:         Overwrite,
		site.Announcements: Overwrite,
		site.Messages:      UnionByID,
	}
}

// Mode returns the mode for c.
func (p MergePolicy) Mode(c site.Collection) MergeMode {
	if m, ok := p[c]; ok {
		return m
	}
	return Overwrite
}

// MergeStats describes what a merge kept from the local side.
type MergeStats struct {
	// Retained counts local-only entities kept by union merges.
	Retained int `json:"retained"`
	// Upgraded counts remote messages whose read flag was raised from the
	// local copy.
	Upgraded int `json:"upgraded"`
}

// LocalWins reports whether the merged document differs from the remote
// one in any collection.
func (m MergeStats) LocalWins() bool {
	return m.Retained > 0 || m.Upgraded > 0
}

// Merge integrates remote into local and returns a new document. Scalar
// fields come from remote; connection fields always stay local. With force
// every collection is overwritten.
func Merge(local, remote *site.Document, policy MergePolicy, force bool) (*site.Document, MergeStats) {
	merged := remote.Clone()
	merged.SetConnection(local.Connection())

	var stats MergeStats
	if force {
		return merged, stats
	}

	if policy.Mode(site.Posts) == UnionByID {
		merged.Posts = unionByID(local.Posts, remote.Posts, &stats, nil)
	}
	if policy.Mode(site.Announcements) == UnionByID {
		merged.Announcements = unionByID(local.Announcements, remote.Announcements, &stats, nil)
	}
	if policy.Mode(site.Messages) == UnionByID {
		merged.Messages = unionByID(local.Messages, remote.Messages, &stats, func(l, r site.Message) site.Message {
			if l.Read && !r.Read {
				r.Read = true
				stats.Upgraded++
			}
			return r
		})
	}
	return merged, stats
}

// unionByID returns local-only entities (in local order) followed by the
// remote entities. combine, when set, resolves ids present on both sides.
func unionByID[T site.Entity](local, remote []T, stats *MergeStats, combine func(local, remote T) T) []T {
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		remoteIDs[r.Key()] = struct{}{}
	}
	localByID := make(map[string]T, len(local))
	for _, l := range local {
		if _, seen := localByID[l.Key()]; !seen {
			localByID[l.Key()] = l
		}
	}

	out := make([]T, 0, len(local)+len(remote))
	for _, l := range local {
		if _, shared := remoteIDs[l.Key()]; !shared {
			out = append(out, l)
			stats.Retained++
		}
	}
	for _, r := range remote {
		if l, shared := localByID[r.Key()]; shared && combine != nil {
			r = combine(l, r)
		}
		out = append(out, r)
	}
	return out
}
