package models

// PlayerInventory 玩家库存台账表，(user_id, item_id) 唯一
// 台账是持有数量的权威来源；会话内缓存只是它的内存镜像。
type PlayerInventory struct {
	BaseModel
	UserID   uint `gorm:"uniqueIndex:idx_user_item;not null" json:"user_id"`
	ItemID   uint `gorm:"uniqueIndex:idx_user_item;not null" json:"item_id"`
	Item     Item `gorm:"foreignKey:ItemID" json:"item"`
	Quantity int  `gorm:"not null;default:1" json:"quantity"`
}

// TableName 指定PlayerInventory表名
func (PlayerInventory) TableName() string {
	return "player_inventories"
}
