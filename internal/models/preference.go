package models

import "gorm.io/datatypes"

// ColumnPreference stores the visible columns a user picked for one table view.
type ColumnPreference struct {
	BaseModel

	UserID   string         `gorm:"type:uuid;not null;uniqueIndex:idx_column_pref_user_table" json:"user_id"`
	Table    string         `gorm:"column:table_name;size:64;not null;uniqueIndex:idx_column_pref_user_table" json:"table_name"`
	Columns  datatypes.JSON `json:"columns"`
	PageSize int            `json:"page_size"`
}
