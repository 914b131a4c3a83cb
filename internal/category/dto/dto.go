package dto

// CategoryFilters narrows the category facet. Zero value returns everything.
type CategoryFilters struct {
	Search string `form:"q"`
}
