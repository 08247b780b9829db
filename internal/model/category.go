package model

// CategoryType classifies how a category came to exist.
type CategoryType string

const (
	// CategoryTypeSystem marks the built-in default categories seeded on
	// first startup.
	CategoryTypeSystem CategoryType = "system"

	// CategoryTypeCustom marks categories created by the user or
	// discovered from AI categorization output.
	CategoryTypeCustom CategoryType = "custom"

	// CategoryTypeFolder marks categories mirroring a physical folder
	// observed on the remote mailbox.
	CategoryTypeFolder CategoryType = "folder"
)

// Valid reports whether t is one of the known category types.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeSystem, CategoryTypeCustom, CategoryTypeFolder:
		return true
	}
	return false
}

// Category is a named label. Name is the primary key, case-sensitive.
type Category struct {
	Name string       `json:"name"`
	Type CategoryType `json:"type"`
}

// SystemCategories are seeded into an empty categories table.
var SystemCategories = []Category{
	{Name: "Personal", Type: CategoryTypeSystem},
	{Name: "Work", Type: CategoryTypeSystem},
	{Name: "Newsletter", Type: CategoryTypeSystem},
	{Name: "Spam", Type: CategoryTypeSystem},
}
