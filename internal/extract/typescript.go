package extract

func init() {
	// TypeScript and TSX reuse the JavaScript rules; the grammar superset
	// adds interfaces, enums, type aliases and annotations, all of which the
	// shared tables already classify.
	registry["typescript"] = jsRules{langTag: "typescript"}
	registry["tsx"] = jsRules{langTag: "tsx"}
}
