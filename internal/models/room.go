package models

import "strings"

// 四个出口方向，按固定顺序排列
const (
	DirectionEast  = "east"
	DirectionWest  = "west"
	DirectionNorth = "north"
	DirectionSouth = "south"
)

// Directions 所有合法方向（固定顺序，用于出口列表展示）
var Directions = []string{DirectionEast, DirectionWest, DirectionNorth, DirectionSouth}

// Room 房间表
// 四个出口为指向自身表的外键，可为空；传送房间通过 teleport_destinations 关联目的地。
type Room struct {
	BaseModel
	Name        string `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`

	ExitEastID  *uint `gorm:"column:exit_east" json:"-"`
	ExitWestID  *uint `gorm:"column:exit_west" json:"-"`
	ExitNorthID *uint `gorm:"column:exit_north" json:"-"`
	ExitSouthID *uint `gorm:"column:exit_south" json:"-"`

	ExitEast  *Room `gorm:"foreignKey:ExitEastID" json:"-"`
	ExitWest  *Room `gorm:"foreignKey:ExitWestID" json:"-"`
	ExitNorth *Room `gorm:"foreignKey:ExitNorthID" json:"-"`
	ExitSouth *Room `gorm:"foreignKey:ExitSouthID" json:"-"`

	IsTeleportRoom bool `gorm:"column:is_teleport;default:false" json:"is_teleport_room"`

	// 关联（查询时必须由仓储层预加载，见 RoomRepository）
	RoomItems            []RoomItem            `gorm:"foreignKey:RoomID" json:"room_items"`
	TeleportDestinations []TeleportDestination `gorm:"foreignKey:RoomID" json:"-"`
}

// TableName 指定Room表名
func (Room) TableName() string {
	return "rooms"
}

// Exit 根据方向获取出口房间（大小写不敏感），没有该方向出口时返回nil
func (r *Room) Exit(direction string) *Room {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case DirectionEast:
		return r.ExitEast
	case DirectionWest:
		return r.ExitWest
	case DirectionNorth:
		return r.ExitNorth
	case DirectionSouth:
		return r.ExitSouth
	default:
		return nil
	}
}

// ValidExitDirections 获取所有有效出口方向（固定顺序）
func (r *Room) ValidExitDirections() []string {
	var dirs []string
	for _, d := range Directions {
		if r.Exit(d) != nil {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

// ExitNames 获取方向到目的房间名的映射
func (r *Room) ExitNames() map[string]string {
	exits := make(map[string]string)
	for _, d := range Directions {
		if next := r.Exit(d); next != nil {
			exits[d] = next.Name
		}
	}
	return exits
}

// FindStock 按名称（去空格、大小写不敏感）查找房间库存条目
func (r *Room) FindStock(itemName string) *RoomItem {
	target := strings.ToLower(strings.TrimSpace(itemName))
	for i := range r.RoomItems {
		item := r.RoomItems[i].Item
		if strings.ToLower(strings.TrimSpace(item.Name)) == target {
			return &r.RoomItems[i]
		}
	}
	return nil
}

// DestinationIDs 获取传送目的地房间ID集合（仅对传送房间有意义）
func (r *Room) DestinationIDs() []uint {
	ids := make([]uint, 0, len(r.TeleportDestinations))
	for _, td := range r.TeleportDestinations {
		ids = append(ids, td.DestinationID)
	}
	return ids
}

// TotalItemWeight 计算房间内物品总重量（重量×数量求和）
func (r *Room) TotalItemWeight() float64 {
	var total float64
	for _, ri := range r.RoomItems {
		total += ri.Item.Weight * float64(ri.Quantity)
	}
	return total
}

// RoomItem 房间物品库存表，(room_id, item_id) 唯一
type RoomItem struct {
	BaseModel
	RoomID   uint `gorm:"uniqueIndex:idx_room_item;not null" json:"room_id"`
	ItemID   uint `gorm:"uniqueIndex:idx_room_item;not null" json:"item_id"`
	Item     Item `gorm:"foreignKey:ItemID" json:"item"`
	Quantity int  `gorm:"not null;default:1" json:"quantity"`
}

// TableName 指定RoomItem表名
func (RoomItem) TableName() string {
	return "room_items"
}

// TeleportDestination 传送目的地表，(room_id, destination_id) 唯一
type TeleportDestination struct {
	BaseModel
	RoomID        uint  `gorm:"uniqueIndex:idx_teleport_dest;not null" json:"room_id"`
	DestinationID uint  `gorm:"uniqueIndex:idx_teleport_dest;not null" json:"destination_id"`
	Destination   *Room `gorm:"foreignKey:DestinationID" json:"-"`
}

// TableName 指定TeleportDestination表名
func (TeleportDestination) TableName() string {
	return "teleport_destinations"
}
