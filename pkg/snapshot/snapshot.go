// Package snapshot maps the access-control graph to and from durable
// storage. A snapshot is the wholesale externalized form of the resource
// registry, the everyone baseline, and the role registry; it is written once
// at shutdown and read once at startup, never mid-session.
//
// Exported rule entries always carry {right, granted} pairs, never raw
// tokens. A pair whose right name is "*" is a wildcard that re-expands
// against the resource's declared rights at resolution time.
package snapshot

import (
	"time"

	"github.com/gatewarden/gatewarden/pkg/iam"
	"github.com/gatewarden/gatewarden/pkg/rules"
)

// RightRecord is one exported grant or denial.
type RightRecord struct {
	Right   string `json:"right"`
	Granted bool   `json:"granted"`
}

// ResourceRecord is one exported resource. Rights carry the grant state the
// everyone baseline resolves them to; restore only needs the names.
type ResourceRecord struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Rights      []RightRecord `json:"rights"`
}

// RoleRecord is one exported role.
type RoleRecord struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Rights      map[string][]RightRecord `json:"rights"`
}

// UserRecord is reserved for user persistence. The schema is declared so
// stored snapshots have a stable shape, but Capture does not populate it
// and Restore does not consume it.
type UserRecord struct {
	Key    string                   `json:"key"`
	Name   string                   `json:"name"`
	Roles  []string                 `json:"roles,omitempty"`
	Groups []string                 `json:"groups,omitempty"`
	Rights map[string][]RightRecord `json:"rights,omitempty"`
}

// GroupRecord is reserved for group persistence, like UserRecord.
type GroupRecord struct {
	Name    string   `json:"name"`
	Roles   []string `json:"roles,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Snapshot is the full externalized state.
type Snapshot struct {
	SavedAt   time.Time                `json:"saved_at"`
	Resources []ResourceRecord         `json:"resources"`
	Everyone  map[string][]RightRecord `json:"everyone"`
	Roles     []RoleRecord             `json:"roles"`

	// Reserved extension points, not yet wired into Capture/Restore.
	Users  []UserRecord  `json:"users,omitempty"`
	Groups []GroupRecord `json:"groups,omitempty"`
}

// Capture exports the current resource registry, everyone baseline, and
// role registry. It holds the graph's read lock only while copying; it
// performs no I/O.
func Capture(sys *iam.System) *Snapshot {
	snap := &Snapshot{
		SavedAt:  time.Now().UTC(),
		Everyone: make(map[string][]RightRecord),
	}
	for _, resource := range sys.Resources() {
		snap.Resources = append(snap.Resources, ResourceRecord{
			Name:        resource.Name(),
			Description: resource.Description(),
			Rights:      entryToRecords(resource.ResolvedRights()),
		})
	}
	for resourceName, entry := range sys.EveryoneRules() {
		snap.Everyone[resourceName] = entryToRecords(entry)
	}
	for _, role := range sys.Roles() {
		record := RoleRecord{
			Name:        role.Name(),
			Description: role.Description(),
			Rights:      make(map[string][]RightRecord),
		}
		for resourceName, entry := range role.Rules() {
			record.Rights[resourceName] = entryToRecords(entry)
		}
		snap.Roles = append(snap.Roles, record)
	}
	return snap
}

// Restore rebuilds the graph from a snapshot. The rebuild is wholesale: any
// existing state, including demo or seed data, is discarded first.
func Restore(sys *iam.System, snap *Snapshot) error {
	sys.Reset()
	for _, record := range snap.Resources {
		names := make([]string, 0, len(record.Rights))
		for _, right := range record.Rights {
			names = append(names, right.Right)
		}
		resource, err := sys.CreateResource(record.Name, names)
		if err != nil {
			return err
		}
		resource.SetDescription(record.Description)
	}
	everyone := make(rules.Set, len(snap.Everyone))
	for resourceName, records := range snap.Everyone {
		everyone[resourceName] = recordsToEntry(records)
	}
	sys.EveryoneSet(everyone)
	for _, record := range snap.Roles {
		set := make(rules.Set, len(record.Rights))
		for resourceName, records := range record.Rights {
			set[resourceName] = recordsToEntry(records)
		}
		role, err := sys.CreateRoleFromSet(record.Name, set)
		if err != nil {
			return err
		}
		role.SetDescription(record.Description)
	}
	return nil
}

func entryToRecords(entry []rules.Right) []RightRecord {
	out := make([]RightRecord, 0, len(entry))
	for _, rule := range entry {
		out = append(out, RightRecord{Right: rule.Name, Granted: rule.Granted})
	}
	return out
}

func recordsToEntry(records []RightRecord) rules.Entry {
	entry := make(rules.Entry, 0, len(records))
	for _, record := range records {
		entry = append(entry, rules.Right{Name: record.Right, Granted: record.Granted})
	}
	return entry
}
