package upload

// OracleKind discriminates OracleResult.
type OracleKind int

const (
	// OracleUnavailable means the oracle could not be reached or replied with something unusable.
	// It carries no tag information.
	OracleUnavailable OracleKind = iota
	OracleTagPending
	OracleTagged
	OracleDuplicateUntagged
	OracleDuplicateTagged
)

var oracleKindNames = map[OracleKind]string{
	OracleUnavailable:       "unavailable",
	OracleTagPending:        "not_duplicate_tag_pending",
	OracleTagged:            "not_duplicate_tagged",
	OracleDuplicateUntagged: "duplicate_untagged",
	OracleDuplicateTagged:   "duplicate_tagged",
}

func (k OracleKind) String() string {
	if name, ok := oracleKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// OracleResult is the parsed answer to a tag query.
type OracleResult struct {
	Kind        OracleKind
	Tags        []TagRecord
	OriginalKey string
}

func Unavailable() OracleResult { return OracleResult{Kind: OracleUnavailable} }
func TagPending() OracleResult  { return OracleResult{Kind: OracleTagPending} }

// Tagged returns a not-duplicate result; an empty tag set degrades to TagPending.
func Tagged(tags []TagRecord) OracleResult {
	if len(tags) == 0 {
		return TagPending()
	}
	return OracleResult{Kind: OracleTagged, Tags: tags}
}

// Duplicate returns a duplicate result, tagged when tags is non-empty.
func Duplicate(originalKey string, tags []TagRecord) OracleResult {
	if len(tags) == 0 {
		return OracleResult{Kind: OracleDuplicateUntagged, OriginalKey: originalKey}
	}
	return OracleResult{Kind: OracleDuplicateTagged, OriginalKey: originalKey, Tags: tags}
}

// DuplicateTaggedUnlisted is a duplicate whose original is known to carry tags that the
// answer did not list.
func DuplicateTaggedUnlisted(originalKey string) OracleResult {
	return OracleResult{Kind: OracleDuplicateTagged, OriginalKey: originalKey}
}

func (r OracleResult) IsDuplicate() bool {
	return r.Kind == OracleDuplicateTagged || r.Kind == OracleDuplicateUntagged
}

func (r OracleResult) IsUnavailable() bool { return r.Kind == OracleUnavailable }

// HasTags reports whether the result carries a non-empty tag set.
func (r OracleResult) HasTags() bool {
	return (r.Kind == OracleTagged || r.Kind == OracleDuplicateTagged) && len(r.Tags) > 0
}
