package recon

import (
	"github.com/ledgerbridge/tallysync/internal/tags"
)

// ReconstructMasters recovers reference (master) records of one kind from a
// flat master export stream. MASTER_GUID is the boundary tag; a record needs
// both a guid and a name to be usable, anything else is reported and skipped.
func (r *Reconstructor) ReconstructMasters(kind string, stream []tags.TagValue) ([]MasterRecord, []Warning) {
	var (
		records  []MasterRecord
		warnings []Warning
		cur      map[string]string
	)

	flush := func() {
		if cur == nil {
			return
		}
		raw := cur
		cur = nil
		if raw["guid"] == "" || raw["name"] == "" {
			warnings = append(warnings, Warning{
				Kind:    tags.KindMaster,
				LocalID: raw["guid"],
				Message: kind + " master missing guid or name, skipped",
			})
			return
		}
		records = append(records, MasterRecord{
			Kind:        kind,
			GUID:        raw["guid"],
			Name:        raw["name"],
			Alias:       raw["alias"],
			Parent:      raw["parent"],
			Description: raw["description"],
		})
	}

	for _, tv := range stream {
		k, field, boundary := r.Tags.Classify(tv.Name)
		if k != tags.KindMaster {
			continue
		}
		if boundary {
			flush()
			cur = map[string]string{"guid": tv.Value}
			continue
		}
		if cur == nil {
			warnings = append(warnings, Warning{
				Kind:    tags.KindMaster,
				Message: "master field " + tv.Name + " with no open record",
			})
			continue
		}
		cur[field] = tv.Value
	}
	flush()

	return records, warnings
}
