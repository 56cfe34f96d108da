package game

import (
	"fmt"
	"strings"

	"github.com/wfunc/adventure-server/internal/models"
)

// ItemView 物品展示条目
type ItemView struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Quantity    int     `json:"quantity"`
}

// RoomView 房间展示信息
type RoomView struct {
	ID             uint              `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Exits          map[string]string `json:"exits"`
	Items          []ItemView        `json:"items"`
	TeleportActive bool              `json:"teleport_active"`
}

// UserView 玩家展示信息
type UserView struct {
	ID             uint    `json:"id"`
	Username       string  `json:"username"`
	MaxCarryWeight float64 `json:"max_carry_weight"`
}

// Response 命令执行结果
type Response struct {
	Success       bool       `json:"success"`
	SessionToken  string     `json:"session_token,omitempty"`
	Message       string     `json:"message"`
	Room          *RoomView  `json:"room,omitempty"`
	Inventory     []ItemView `json:"inventory"`
	User          *UserView  `json:"user,omitempty"`
	CurrentWeight float64    `json:"current_weight"`
	MaxWeight     float64    `json:"max_weight"`
	GameOver      bool       `json:"game_over"`

	// items 命令专用：房间和背包的物品总重量
	RoomTotalWeight   *float64 `json:"room_total_weight,omitempty"`
	PlayerTotalWeight *float64 `json:"player_total_weight,omitempty"`
}

// NewRoomView 从房间实体构建展示信息
func NewRoomView(room *models.Room) *RoomView {
	view := &RoomView{
		ID:             room.ID,
		Name:           room.Name,
		Description:    room.Description,
		Exits:          room.ExitNames(),
		Items:          make([]ItemView, 0, len(room.RoomItems)),
		TeleportActive: room.IsTeleportRoom,
	}
	for _, ri := range room.RoomItems {
		view.Items = append(view.Items, ItemView{
			Name:        ri.Item.Name,
			Description: ri.Item.Description,
			Weight:      ri.Item.Weight,
			Quantity:    ri.Quantity,
		})
	}
	return view
}

// inventoryViews 从会话缓存构建背包展示列表
func inventoryViews(held []HeldItem) []ItemView {
	views := make([]ItemView, 0, len(held))
	for _, h := range held {
		views = append(views, ItemView{
			Name:        h.Item.Name,
			Description: h.Item.Description,
			Weight:      h.Item.Weight,
			Quantity:    h.Quantity,
		})
	}
	return views
}

// formatWeight 负重文案格式化，保留一位小数
func formatWeight(w float64) string {
	return fmt.Sprintf("%.1f", w)
}

// DescribeRoom 构建房间的完整文字描述
func DescribeRoom(room *models.Room) string {
	var sb strings.Builder
	sb.WriteString("=== ")
	sb.WriteString(room.Name)
	sb.WriteString(" ===\n")
	sb.WriteString(room.Description)
	sb.WriteString("\n\n")

	if exits := room.ValidExitDirections(); len(exits) > 0 {
		sb.WriteString("出口: ")
		sb.WriteString(strings.Join(exits, ", "))
		sb.WriteString("\n")
	}

	if len(room.RoomItems) == 0 {
		sb.WriteString("\n这里没有可见的物品")
	} else {
		sb.WriteString("\n房间物品:\n")
		for _, ri := range room.RoomItems {
			sb.WriteString(fmt.Sprintf("- %s (数量: %d, 重量: %skg)\n   %s\n",
				ri.Item.Name, ri.Quantity, formatWeight(ri.Item.Weight), ri.Item.Description))
		}
	}

	if room.IsTeleportRoom {
		sb.WriteString("\n传送门能量波动中，可能通往未知领域...")
	}

	return sb.String()
}
