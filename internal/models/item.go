package models

// Item 物品表
type Item struct {
	BaseModel
	Name        string  `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Weight      float64 `gorm:"not null" json:"weight"` // 单件重量(kg)，非负
	Edible      bool    `gorm:"default:false" json:"edible"`
}

// TableName 指定Item表名
func (Item) TableName() string {
	return "items"
}
