package game

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/adventure-server/internal/models"
)

// RoomSnapshot 房间快照，只保留身份信息
// 历史栈存快照而非实体，返回时按ID重新加载最新数据。
type RoomSnapshot struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SnapshotRoom 创建房间快照
func SnapshotRoom(room *models.Room) RoomSnapshot {
	return RoomSnapshot{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
	}
}

// HeldItem 会话内缓存的持有物品条目
type HeldItem struct {
	Item     models.Item
	Quantity int
}

// Session 单个玩家的游戏会话
// 台账（player_inventories表）是持有数量的权威来源，缓存只是其内存镜像，
// 事务提交后才更新。所有方法都要求调用方持有会话锁。
type Session struct {
	mu sync.Mutex

	UserID        uint
	Token         string
	CurrentRoomID uint
	GameOver      bool
	CreatedAt     time.Time

	history []RoomSnapshot
	items   map[uint]*HeldItem
	names   map[string]uint
}

// NewSession 创建会话并从台账条目重建缓存
func NewSession(userID uint, token string, roomID uint, entries []models.PlayerInventory) *Session {
	s := &Session{
		UserID:        userID,
		Token:         token,
		CurrentRoomID: roomID,
		CreatedAt:     time.Now(),
	}
	s.Rebuild(entries)
	return s
}

// Lock 锁定会话，命令执行期间全程持有
func (s *Session) Lock() {
	s.mu.Lock()
}

// Unlock 释放会话锁
func (s *Session) Unlock() {
	s.mu.Unlock()
}

// normalizeItemName 物品名称归一化（去空格、小写）
func normalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Rebuild 从台账条目重建物品缓存
func (s *Session) Rebuild(entries []models.PlayerInventory) {
	s.items = make(map[uint]*HeldItem, len(entries))
	s.names = make(map[string]uint, len(entries))
	for _, e := range entries {
		s.items[e.ItemID] = &HeldItem{Item: e.Item, Quantity: e.Quantity}
		s.names[normalizeItemName(e.Item.Name)] = e.ItemID
	}
}

// AddItem 缓存中增加一件物品，返回新数量
func (s *Session) AddItem(item models.Item) int {
	held, ok := s.items[item.ID]
	if !ok {
		s.items[item.ID] = &HeldItem{Item: item, Quantity: 1}
		s.names[normalizeItemName(item.Name)] = item.ID
		return 1
	}
	held.Quantity++
	return held.Quantity
}

// RemoveItem 缓存中移除一件物品，返回剩余数量；数量减到0时删除条目
func (s *Session) RemoveItem(itemID uint) int {
	held, ok := s.items[itemID]
	if !ok {
		return 0
	}
	held.Quantity--
	if held.Quantity <= 0 {
		delete(s.items, itemID)
		delete(s.names, normalizeItemName(held.Item.Name))
		return 0
	}
	return held.Quantity
}

// FindItem 按名称查找持有的物品（去空格、大小写不敏感）
func (s *Session) FindItem(name string) (*HeldItem, bool) {
	id, ok := s.names[normalizeItemName(name)]
	if !ok {
		return nil, false
	}
	held, ok := s.items[id]
	return held, ok
}

// Items 获取持有物品列表（按物品ID排序，保证展示顺序稳定）
func (s *Session) Items() []HeldItem {
	out := make([]HeldItem, 0, len(s.items))
	for _, held := range s.items {
		out = append(out, *held)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Item.ID < out[j].Item.ID
	})
	return out
}

// PushHistory 把房间快照压入历史栈
func (s *Session) PushHistory(room *models.Room) {
	s.history = append(s.history, SnapshotRoom(room))
}

// PeekHistory 查看最近的历史房间（不弹出）
func (s *Session) PeekHistory() (RoomSnapshot, bool) {
	if len(s.history) == 0 {
		return RoomSnapshot{}, false
	}
	return s.history[len(s.history)-1], true
}

// PopHistory 弹出最近的历史房间
func (s *Session) PopHistory() (RoomSnapshot, bool) {
	if len(s.history) == 0 {
		return RoomSnapshot{}, false
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return last, true
}

// HasHistory 检查是否有可返回的历史
func (s *Session) HasHistory() bool {
	return len(s.history) > 0
}

// HistorySize 历史栈大小
func (s *Session) HistorySize() int {
	return len(s.history)
}
