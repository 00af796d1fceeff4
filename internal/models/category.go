package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category classifies cash flows and recurring templates. Its type must
// match the type of anything filed under it.
type Category struct {
	Base
	BoutiqueID  string       `gorm:"type:uuid;not null;index" json:"boutique_id"`
	Name        string       `gorm:"not null" json:"name"`
	Type        CategoryType `gorm:"not null" json:"type"`
	Description string       `json:"description"`
	IsActive    bool         `gorm:"default:true" json:"is_active"`
}
