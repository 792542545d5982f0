package handler

// Categorizer assigns a category to an item created without one. The real
// text-heuristics engine lives outside this service; handlers only depend on
// this interface.
type Categorizer interface {
	Categorize(name string) string
}

// StaticCategorizer is the default Categorizer: every uncategorized item
// lands in the fallback category.
type StaticCategorizer struct {
	Fallback string
}

func (c StaticCategorizer) Categorize(string) string {
	if c.Fallback == "" {
		return "Other"
	}
	return c.Fallback
}
