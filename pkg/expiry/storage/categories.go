package storage

import (
	"fmt"

	"slate-hq/slate/pkg/expiry"
)

// categorySpec binds a data category to its table, predicate, and size
// accounting. The mapping is fixed at startup; sweeps never resolve tables
// by reflection or dynamic lookup.
type categorySpec struct {
	table string

	// where is the category predicate, ANDed with the expiry condition.
	where string

	// sizeExpr is the SQL expression summed into freed bytes. Empty means
	// the category carries no size information and contributes zero.
	sizeExpr string

	// storageBytes selects whether freed bytes are accounted as reclaimed
	// storage (file-backed rows) or reclaimed memory (row payloads).
	storageBytes bool
}

var categorySpecs = map[expiry.Category]categorySpec{
	expiry.CategoryAnonymousStrokes: {
		table:    "strokes",
		where:    "user_id IS NULL",
		sizeExpr: "COALESCE(LENGTH(stroke_data), 0)",
	},
	expiry.CategoryRegisteredStrokes: {
		table:    "strokes",
		where:    "user_id IS NOT NULL",
		sizeExpr: "COALESCE(LENGTH(stroke_data), 0)",
	},
	expiry.CategoryUnusedTemplates: {
		table:        "file_uploads",
		where:        "upload_type = 'template' AND usage_count = 0",
		sizeExpr:     "COALESCE(file_size, 0)",
		storageBytes: true,
	},
	expiry.CategoryTemporaryUploads: {
		table:        "file_uploads",
		where:        "upload_type = 'temporary'",
		sizeExpr:     "COALESCE(file_size, 0)",
		storageBytes: true,
	},
	expiry.CategoryBoardExports: {
		table:        "file_uploads",
		where:        "upload_type = 'export'",
		sizeExpr:     "COALESCE(file_size, 0)",
		storageBytes: true,
	},
	expiry.CategoryUserAvatars: {
		table:        "file_uploads",
		where:        "upload_type = 'avatar'",
		sizeExpr:     "COALESCE(file_size, 0)",
		storageBytes: true,
	},
	expiry.CategoryEphemeralPresence: {
		table: "activity_log",
		where: "activity_type = 'presence'",
	},
	expiry.CategoryLoginHistory: {
		table: "activity_log",
		where: "activity_type = 'login'",
	},
	expiry.CategoryEditHistory: {
		table: "activity_log",
		where: "activity_type = 'edit'",
	},
}

// uploadTypes maps file-backed categories to their upload_type column value.
var uploadTypes = map[expiry.Category]string{
	expiry.CategoryUnusedTemplates:  "template",
	expiry.CategoryTemporaryUploads: "temporary",
	expiry.CategoryBoardExports:     "export",
	expiry.CategoryUserAvatars:      "avatar",
}

// activityTypes maps activity categories to their activity_type column value.
var activityTypes = map[expiry.Category]string{
	expiry.CategoryEphemeralPresence: "presence",
	expiry.CategoryLoginHistory:      "login",
	expiry.CategoryEditHistory:       "edit",
}

// specFor resolves the spec for a category.
func specFor(category expiry.Category) (categorySpec, error) {
	spec, ok := categorySpecs[category]
	if !ok {
		return categorySpec{}, fmt.Errorf("unknown category %q", category)
	}
	return spec, nil
}

// StorageAccounted reports whether a category's freed bytes count as
// reclaimed storage rather than reclaimed memory.
func StorageAccounted(category expiry.Category) bool {
	return categorySpecs[category].storageBytes
}
