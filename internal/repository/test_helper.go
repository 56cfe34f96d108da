package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/adventure-server/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Item{},
		&models.Room{},
		&models.RoomItem{},
		&models.TeleportDestination{},
		&models.PlayerInventory{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// TestWorld 测试用的小世界
type TestWorld struct {
	Outside     *models.Room
	Lab         *models.Room
	Pub         *models.Room
	Transporter *models.Room
	Notebook    *models.Item
	Beer        *models.Item
	Cake        *models.Item
	Dumbbell    *models.Item
}

// SeedTestWorld 创建测试世界：
// outside --east--> lab，outside --west--> pub，pub --north--> transporter（传送房间）
func SeedTestWorld(t *testing.T, db *gorm.DB) *TestWorld {
	w := &TestWorld{
		Outside:     &models.Room{Name: "outside", Description: "大门外的广场"},
		Lab:         &models.Room{Name: "lab", Description: "计算机实验室"},
		Pub:         &models.Room{Name: "pub", Description: "校园酒吧"},
		Transporter: &models.Room{Name: "transporter", Description: "传送房间", IsTeleportRoom: true},
		Notebook:    &models.Item{Name: "notebook", Description: "一本笔记本", Weight: 0.5},
		Beer:        &models.Item{Name: "beer", Description: "一杯啤酒", Weight: 1.0, Edible: true},
		Cake:        &models.Item{Name: "magic cake", Description: "神秘蛋糕", Weight: 0.5, Edible: true},
		Dumbbell:    &models.Item{Name: "dumbbell", Description: "沉重的哑铃", Weight: 45.0},
	}

	for _, item := range []*models.Item{w.Notebook, w.Beer, w.Cake, w.Dumbbell} {
		require.NoError(t, db.Create(item).Error)
	}
	for _, room := range []*models.Room{w.Outside, w.Lab, w.Pub, w.Transporter} {
		require.NoError(t, db.Create(room).Error)
	}

	// 出口
	w.Outside.ExitEastID = &w.Lab.ID
	w.Outside.ExitWestID = &w.Pub.ID
	w.Lab.ExitWestID = &w.Outside.ID
	w.Pub.ExitEastID = &w.Outside.ID
	w.Pub.ExitNorthID = &w.Transporter.ID
	for _, room := range []*models.Room{w.Outside, w.Lab, w.Pub} {
		require.NoError(t, db.Save(room).Error)
	}

	// 传送目的地：outside 和 lab
	for _, dest := range []*models.Room{w.Outside, w.Lab} {
		td := models.TeleportDestination{RoomID: w.Transporter.ID, DestinationID: dest.ID}
		require.NoError(t, db.Create(&td).Error)
	}

	// 房间物品
	stock := []models.RoomItem{
		{RoomID: w.Lab.ID, ItemID: w.Notebook.ID, Quantity: 2},
		{RoomID: w.Pub.ID, ItemID: w.Beer.ID, Quantity: 3},
		{RoomID: w.Outside.ID, ItemID: w.Dumbbell.ID, Quantity: 1},
	}
	for i := range stock {
		require.NoError(t, db.Create(&stock[i]).Error)
	}

	return w
}

// CreateTestUser 创建测试玩家
func CreateTestUser(t *testing.T, db *gorm.DB, username string, roomID uint) *models.User {
	room := roomID
	user := &models.User{
		Username:       username,
		Password:       "$argon2id$test",
		CurrentRoomID:  &room,
		MaxCarryWeight: 50,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}
