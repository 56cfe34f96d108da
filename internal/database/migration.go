package database

import (
	"fmt"

	"github.com/wfunc/adventure-server/internal/config"
	"github.com/wfunc/adventure-server/internal/logger"
	"github.com/wfunc/adventure-server/internal/models"
	"github.com/wfunc/adventure-server/internal/utils"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 需要迁移的模型
	migrationModels := []interface{}{
		// 玩家相关
		&models.User{},
		&models.PlayerInventory{},

		// 世界相关
		&models.Room{},
		&models.RoomItem{},
		&models.TeleportDestination{},
		&models.Item{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite 迁移期间禁用外键约束，房间表的自引用出口会导致重建表失败
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	// 初始化世界数据
	if err := SeedWorld(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	indexes := map[string]string{
		"idx_users_session_token":      "CREATE INDEX IF NOT EXISTS idx_users_session_token ON users(session_token)",
		"idx_users_current_room":       "CREATE INDEX IF NOT EXISTS idx_users_current_room ON users(current_room_id)",
		"idx_room_items_room_id":       "CREATE INDEX IF NOT EXISTS idx_room_items_room_id ON room_items(room_id)",
		"idx_player_inventories_user":  "CREATE INDEX IF NOT EXISTS idx_player_inventories_user ON player_inventories(user_id)",
		"idx_teleport_dest_room_id":    "CREATE INDEX IF NOT EXISTS idx_teleport_dest_room_id ON teleport_destinations(room_id)",
	}

	for name, stmt := range indexes {
		if err := DB.Exec(stmt).Error; err != nil {
			logger.Warn("创建索引失败", zap.String("index", name), zap.Error(err))
		}
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// SeedWorld 初始化世界数据（幂等：已有房间则跳过）
func SeedWorld() error {
	var count int64
	DB.Model(&models.Room{}).Count(&count)
	if count > 0 {
		logger.Debug("世界数据已存在，跳过初始化")
		return nil
	}

	// 物品
	items := []models.Item{
		{Name: "notebook", Description: "一本写满潦草笔记的笔记本", Weight: 0.5},
		{Name: "pen", Description: "一支还能用的钢笔", Weight: 0.1},
		{Name: "beer", Description: "一杯冒着泡沫的啤酒", Weight: 1.0, Edible: true},
		{Name: "cookie", Description: "一块香脆的曲奇饼干", Weight: 0.2, Edible: true},
		{Name: "magic cake", Description: "散发着微光的神秘蛋糕", Weight: 0.5, Edible: true},
		{Name: "dumbbell", Description: "一只沉重的哑铃", Weight: 45.0},
		{Name: "key", Description: "一把生锈的铜钥匙", Weight: 0.3},
	}
	for i := range items {
		if err := DB.Create(&items[i]).Error; err != nil {
			logger.Error("创建物品失败", zap.String("name", items[i].Name), zap.Error(err))
			return err
		}
	}

	// 房间
	rooms := []models.Room{
		{Name: "outside", Description: "大学正门外的广场"},
		{Name: "theatre", Description: "一间阶梯教室"},
		{Name: "pub", Description: "校园酒吧"},
		{Name: "lab", Description: "计算机实验室"},
		{Name: "office", Description: "计算机管理员的办公室"},
		{Name: "transporter", Description: "一间闪烁着奇异光芒的房间", IsTeleportRoom: true},
	}
	for i := range rooms {
		if err := DB.Create(&rooms[i]).Error; err != nil {
			logger.Error("创建房间失败", zap.String("name", rooms[i].Name), zap.Error(err))
			return err
		}
	}

	byName := make(map[string]*models.Room, len(rooms))
	for i := range rooms {
		byName[rooms[i].Name] = &rooms[i]
	}

	// 出口（第二遍回填自引用外键）
	exits := []struct {
		room, east, west, north, south string
	}{
		{room: "outside", east: "theatre", west: "pub", south: "lab"},
		{room: "theatre", west: "outside"},
		{room: "pub", east: "outside", north: "transporter"},
		{room: "lab", north: "outside", east: "office"},
		{room: "office", west: "lab"},
	}
	for _, e := range exits {
		room := byName[e.room]
		if e.east != "" {
			room.ExitEastID = &byName[e.east].ID
		}
		if e.west != "" {
			room.ExitWestID = &byName[e.west].ID
		}
		if e.north != "" {
			room.ExitNorthID = &byName[e.north].ID
		}
		if e.south != "" {
			room.ExitSouthID = &byName[e.south].ID
		}
		if err := DB.Save(room).Error; err != nil {
			logger.Error("设置出口失败", zap.String("room", e.room), zap.Error(err))
			return err
		}
	}

	// 传送目的地：所有非传送房间
	for _, r := range rooms {
		if r.IsTeleportRoom {
			continue
		}
		td := models.TeleportDestination{
			RoomID:        byName["transporter"].ID,
			DestinationID: r.ID,
		}
		if err := DB.Create(&td).Error; err != nil {
			logger.Error("创建传送目的地失败", zap.String("destination", r.Name), zap.Error(err))
			return err
		}
	}

	// 房间物品
	stock := []struct {
		room, item string
		quantity   int
	}{
		{"lab", "notebook", 2},
		{"lab", "pen", 1},
		{"pub", "beer", 3},
		{"theatre", "cookie", 1},
		{"office", "key", 1},
		{"outside", "dumbbell", 1},
	}
	itemByName := make(map[string]*models.Item, len(items))
	for i := range items {
		itemByName[items[i].Name] = &items[i]
	}
	for _, s := range stock {
		ri := models.RoomItem{
			RoomID:   byName[s.room].ID,
			ItemID:   itemByName[s.item].ID,
			Quantity: s.quantity,
		}
		if err := DB.Create(&ri).Error; err != nil {
			logger.Error("创建房间物品失败", zap.String("item", s.item), zap.Error(err))
			return err
		}
	}

	// 默认玩家账户
	if err := seedDefaultUsers(byName["outside"].ID); err != nil {
		return err
	}

	logger.Info("世界数据初始化完成",
		zap.Int("rooms", len(rooms)),
		zap.Int("items", len(items)),
	)
	return nil
}

// seedDefaultUsers 创建默认玩家账户
func seedDefaultUsers(startRoomID uint) error {
	defaultUsers := []struct {
		username, password string
	}{
		{"player1", "password1"},
		{"player2", "password2"},
	}

	carryWeight := defaultCarryWeight()
	for _, u := range defaultUsers {
		hash, err := utils.HashPassword(u.password)
		if err != nil {
			return fmt.Errorf("密码加密失败: %w", err)
		}
		roomID := startRoomID
		user := models.User{
			Username:       u.username,
			Password:       hash,
			CurrentRoomID:  &roomID,
			MaxCarryWeight: carryWeight,
		}
		if err := DB.Create(&user).Error; err != nil {
			logger.Error("创建默认用户失败", zap.String("username", u.username), zap.Error(err))
			return err
		}
	}
	return nil
}

// defaultCarryWeight 新玩家的负重上限，取game配置；配置未初始化时沿用出厂值
func defaultCarryWeight() float64 {
	if cfg := config.Get(); cfg != nil && cfg.Game.DefaultMaxCarryWeight > 0 {
		return cfg.Game.DefaultMaxCarryWeight
	}
	return 50
}
