package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/adventure-server/internal/config"
	apperrors "github.com/wfunc/adventure-server/internal/errors"
	"github.com/wfunc/adventure-server/internal/models"
	"github.com/wfunc/adventure-server/internal/repository"
	"github.com/wfunc/adventure-server/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EngineTestSuite 游戏引擎测试套件
type EngineTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *Engine
	world  *repository.TestWorld
	user   *models.User
	token  string
}

func testGameConfig() *config.GameConfig {
	return &config.GameConfig{
		SessionTimeout:        30 * time.Minute,
		StartRoom:             "outside",
		DefaultMaxCarryWeight: 50,
		WeightBoost:           10,
		SpecialItemName:       "magic cake",
		TeleportSeed:          42,
	}
}

func (suite *EngineTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.world = repository.SeedTestWorld(suite.T(), suite.db)
	suite.engine = NewEngine(suite.db, testGameConfig(), zap.NewNop())
	suite.user = suite.createPlayer("player1", "secret123", suite.world.Outside.ID)
	suite.token = suite.login("player1", "secret123")
}

func (suite *EngineTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// createPlayer 创建带真实密码哈希的玩家
func (suite *EngineTestSuite) createPlayer(username, password string, roomID uint) *models.User {
	hash, err := utils.HashPassword(password)
	suite.Require().NoError(err)

	room := roomID
	user := &models.User{
		Username:       username,
		Password:       hash,
		CurrentRoomID:  &room,
		MaxCarryWeight: 50,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

// login 登录并返回会话令牌
func (suite *EngineTestSuite) login(username, password string) string {
	resp, err := suite.engine.Login(context.Background(), username, password)
	suite.Require().NoError(err)
	suite.Require().NotEmpty(resp.SessionToken)
	return resp.SessionToken
}

// execute 执行命令，断言成功
func (suite *EngineTestSuite) execute(command, argument string) *Response {
	resp, err := suite.engine.Execute(context.Background(), suite.token, command, argument)
	suite.Require().NoError(err)
	suite.Require().True(resp.Success)
	return resp
}

// putItemInRoom 向房间投放物品
func (suite *EngineTestSuite) putItemInRoom(roomID, itemID uint, quantity int) {
	ri := models.RoomItem{RoomID: roomID, ItemID: itemID, Quantity: quantity}
	suite.Require().NoError(suite.db.Create(&ri).Error)
}

// ==================== 登录与会话 ====================

func (suite *EngineTestSuite) TestLogin() {
	resp, err := suite.engine.Login(context.Background(), "player1", "secret123")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "欢迎回来, player1!", resp.Message)
	assert.Equal(suite.T(), "outside", resp.Room.Name)
	assert.InDelta(suite.T(), 50.0, resp.MaxWeight, 1e-9)
	assert.Zero(suite.T(), resp.CurrentWeight)
	assert.False(suite.T(), resp.GameOver)
}

func (suite *EngineTestSuite) TestLogin_WrongPassword() {
	_, err := suite.engine.Login(context.Background(), "player1", "wrong")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrAuthentication))

	// 未知用户返回同样的错误，不泄露用户是否存在
	_, err = suite.engine.Login(context.Background(), "nobody", "whatever")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrAuthentication))
}

func (suite *EngineTestSuite) TestLogin_RotatesToken() {
	oldToken := suite.token

	newToken := suite.login("player1", "secret123")
	assert.NotEqual(suite.T(), oldToken, newToken)

	// 旧令牌失效
	_, err := suite.engine.Execute(context.Background(), oldToken, "look", "")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrSessionNotFound))

	// 新令牌可用
	suite.token = newToken
	suite.execute("look", "")
}

func (suite *EngineTestSuite) TestRestore_Idempotent() {
	ctx := context.Background()

	first, err := suite.engine.Restore(ctx, suite.token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "已恢复游戏", first.Message)

	// 重复恢复不改变任何状态
	second, err := suite.engine.Restore(ctx, suite.token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.Room.Name, second.Room.Name)
	assert.Equal(suite.T(), first.CurrentWeight, second.CurrentWeight)
	assert.Equal(suite.T(), 1, suite.engine.SessionStore().Len())
}

func (suite *EngineTestSuite) TestRestore_RebuildsFromDatabase() {
	ctx := context.Background()

	// 移动并拾取后抹掉内存会话，模拟进程重启
	suite.execute("go", "east")
	suite.execute("take", "notebook")
	suite.engine.SessionStore().Remove(suite.user.ID)

	resp, err := suite.engine.Restore(ctx, suite.token)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "lab", resp.Room.Name)
	assert.Len(suite.T(), resp.Inventory, 1)
	assert.Equal(suite.T(), "notebook", resp.Inventory[0].Name)
	assert.InDelta(suite.T(), 0.5, resp.CurrentWeight, 1e-9)

	// 历史栈是内存状态，重建后为空
	session, ok := suite.engine.SessionStore().Get(suite.user.ID)
	assert.True(suite.T(), ok)
	assert.False(suite.T(), session.HasHistory())
}

func (suite *EngineTestSuite) TestSession_Expiry() {
	ctx := context.Background()

	// 把最后活跃时间拨回31分钟前
	old := time.Now().Add(-31 * time.Minute)
	suite.Require().NoError(suite.db.Model(&models.User{}).
		Where("id = ?", suite.user.ID).
		Update("last_active_at", old).Error)

	_, err := suite.engine.Execute(ctx, suite.token, "look", "")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrSessionExpired))
	assert.Equal(suite.T(), 0, suite.engine.SessionStore().Len())

	// 重新登录后恢复正常
	suite.token = suite.login("player1", "secret123")
	suite.execute("look", "")
}

// ==================== 移动与历史 ====================

func (suite *EngineTestSuite) TestGo() {
	resp := suite.execute("go", "east")
	assert.Equal(suite.T(), "lab", resp.Room.Name)
	assert.Equal(suite.T(), "你移动到了："+suite.world.Lab.Description, resp.Message)

	// 位置已持久化
	var user models.User
	suite.Require().NoError(suite.db.First(&user, suite.user.ID).Error)
	assert.Equal(suite.T(), suite.world.Lab.ID, *user.CurrentRoomID)
}

func (suite *EngineTestSuite) TestGo_CaseInsensitiveDirection() {
	resp := suite.execute("go", "EAST")
	assert.Equal(suite.T(), "lab", resp.Room.Name)
}

func (suite *EngineTestSuite) TestGo_InvalidDirection() {
	_, err := suite.engine.Execute(context.Background(), suite.token, "go", "north")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrDirectionInvalid))

	_, err = suite.engine.Execute(context.Background(), suite.token, "go", "")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrMissingArgument))

	// 失败的移动不产生历史
	session, _ := suite.engine.SessionStore().Get(suite.user.ID)
	assert.False(suite.T(), session.HasHistory())
}

func (suite *EngineTestSuite) TestBack() {
	suite.execute("go", "east") // outside -> lab
	resp := suite.execute("back", "")
	assert.Equal(suite.T(), "outside", resp.Room.Name)
	assert.Equal(suite.T(), "返回成功："+suite.world.Outside.Description, resp.Message)
}

func (suite *EngineTestSuite) TestBack_DepthExceeded() {
	suite.execute("go", "east")
	suite.execute("go", "west")
	suite.execute("back", "") // -> lab
	suite.execute("back", "") // -> outside

	// 第N+1次back失败，位置不变
	_, err := suite.engine.Execute(context.Background(), suite.token, "back", "")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrNoHistory))

	resp := suite.execute("look", "")
	assert.Equal(suite.T(), "outside", resp.Room.Name)
}

// ==================== 传送 ====================

func (suite *EngineTestSuite) TestTeleport() {
	// outside -> pub -> north 进入传送房间
	suite.execute("go", "west")
	resp := suite.execute("go", "north")

	// 目的地在配置集合内，传送房间从不是当前房间
	assert.Contains(suite.T(), []string{"outside", "lab"}, resp.Room.Name)
	assert.NotEqual(suite.T(), "transporter", resp.Room.Name)
	assert.Contains(suite.T(), resp.Message, "嗡！你被传送到：")

	// 历史记录的是出发房间（pub），back回到pub
	back := suite.execute("back", "")
	assert.Equal(suite.T(), "pub", back.Room.Name)
}

func (suite *EngineTestSuite) TestTeleport_Misconfigured() {
	// 无目的地的传送房间
	void := &models.Room{Name: "void", Description: "空房间", IsTeleportRoom: true}
	suite.Require().NoError(suite.db.Create(void).Error)
	suite.Require().NoError(suite.db.Model(&models.Room{}).
		Where("id = ?", suite.world.Lab.ID).
		Update("exit_east", void.ID).Error)

	suite.execute("go", "east") // -> lab
	_, err := suite.engine.Execute(context.Background(), suite.token, "go", "east")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrTeleportMisconfigured))

	// 玩家位置不变，历史也不变
	resp := suite.execute("look", "")
	assert.Equal(suite.T(), "lab", resp.Room.Name)

	var user models.User
	suite.Require().NoError(suite.db.First(&user, suite.user.ID).Error)
	assert.Equal(suite.T(), suite.world.Lab.ID, *user.CurrentRoomID)
}

// ==================== 拾取与丢弃 ====================

func (suite *EngineTestSuite) TestTakeAndDrop_RoundTrip() {
	suite.execute("go", "east") // lab有2本notebook

	resp := suite.execute("take", "notebook")
	assert.Equal(suite.T(), "获得物品: notebook", resp.Message)
	assert.InDelta(suite.T(), 0.5, resp.CurrentWeight, 1e-9)

	// 房间库存减1
	roomView := resp.Room
	suite.Require().Len(roomView.Items, 1)
	assert.Equal(suite.T(), 1, roomView.Items[0].Quantity)

	resp = suite.execute("drop", "notebook")
	assert.Equal(suite.T(), "您丢弃了物品: notebook", resp.Message)
	assert.Zero(suite.T(), resp.CurrentWeight)
	assert.Empty(suite.T(), resp.Inventory)

	// 房间库存恢复
	suite.Require().Len(resp.Room.Items, 1)
	assert.Equal(suite.T(), 2, resp.Room.Items[0].Quantity)
}

func (suite *EngineTestSuite) TestTake_QuantityCollapse() {
	suite.execute("go", "east")

	suite.execute("take", "notebook")
	resp := suite.execute("take", "notebook")

	// 同一物品合并为一个条目，数量为2
	suite.Require().Len(resp.Inventory, 1)
	assert.Equal(suite.T(), 2, resp.Inventory[0].Quantity)
	assert.InDelta(suite.T(), 1.0, resp.CurrentWeight, 1e-9)

	// 房间已拿空
	assert.Empty(suite.T(), resp.Room.Items)

	// 丢一件还剩一件
	resp = suite.execute("drop", "notebook")
	suite.Require().Len(resp.Inventory, 1)
	assert.Equal(suite.T(), 1, resp.Inventory[0].Quantity)
}

func (suite *EngineTestSuite) TestTake_NotInRoom() {
	_, err := suite.engine.Execute(context.Background(), suite.token, "take", "notebook")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrItemNotFound))
}

func (suite *EngineTestSuite) TestTake_CapacityExceeded() {
	// dumbbell 45kg在outside
	suite.execute("take", "dumbbell")

	// 再放一个，45+45 > 50
	suite.putItemInRoom(suite.world.Outside.ID, suite.world.Dumbbell.ID, 1)

	_, err := suite.engine.Execute(context.Background(), suite.token, "take", "dumbbell")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrCapacityExceeded))

	appErr := err.(*apperrors.AppError)
	assert.Contains(suite.T(), appErr.UserMessage(), "太重了！无法拾取 dumbbell")
	assert.Contains(suite.T(), appErr.UserMessage(), "当前负重: 45.0kg/50.0kg")

	// 拒绝后负重不变
	resp := suite.execute("items", "")
	assert.InDelta(suite.T(), 45.0, resp.CurrentWeight, 1e-9)
}

func (suite *EngineTestSuite) TestDrop_NotHeld() {
	_, err := suite.engine.Execute(context.Background(), suite.token, "drop", "notebook")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrItemNotFound))
}

// ==================== 进食 ====================

func (suite *EngineTestSuite) TestEat_RegularItem() {
	suite.execute("go", "west") // pub有beer
	suite.execute("take", "beer")

	resp := suite.execute("eat", "beer")
	assert.Equal(suite.T(), "你吃掉了 beer", resp.Message)
	assert.Empty(suite.T(), resp.Inventory)
	assert.Zero(suite.T(), resp.CurrentWeight)

	// 负重上限不变
	assert.InDelta(suite.T(), 50.0, resp.MaxWeight, 1e-9)
}

func (suite *EngineTestSuite) TestEat_NotEdible() {
	suite.execute("take", "dumbbell")

	_, err := suite.engine.Execute(context.Background(), suite.token, "eat", "dumbbell")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrNotEdible))

	// 物品仍在背包
	resp := suite.execute("items", "")
	assert.Len(suite.T(), resp.Inventory, 1)
}

func (suite *EngineTestSuite) TestEat_MagicCake() {
	suite.putItemInRoom(suite.world.Outside.ID, suite.world.Cake.ID, 1)
	suite.execute("take", "magic cake")

	consumed := false
	suite.engine.OnSpecialItemConsumed(func(ctx context.Context) { consumed = true })

	resp := suite.execute("eat", "magic cake")
	assert.Contains(suite.T(), resp.Message, "最大负重能力提升了 10.0kg")
	assert.InDelta(suite.T(), 60.0, resp.MaxWeight, 1e-9)
	assert.True(suite.T(), consumed)

	// 提升已持久化
	var user models.User
	suite.Require().NoError(suite.db.First(&user, suite.user.ID).Error)
	assert.InDelta(suite.T(), 60.0, user.MaxCarryWeight, 1e-9)
}

func (suite *EngineTestSuite) TestEat_BoostUnlocksCapacity() {
	// 45kg dumbbell在背包里，0.5kg+45>50 刚好还能拿小物件，
	// 但第二个dumbbell必须吃蛋糕后才能拿
	suite.execute("take", "dumbbell")
	suite.putItemInRoom(suite.world.Outside.ID, suite.world.Dumbbell.ID, 1)
	suite.putItemInRoom(suite.world.Outside.ID, suite.world.Cake.ID, 1)

	_, err := suite.engine.Execute(context.Background(), suite.token, "take", "dumbbell")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrCapacityExceeded))

	suite.execute("take", "magic cake")
	suite.execute("eat", "magic cake")

	// 45 + 45 = 90 > 60 还是不行，再吃三个蛋糕
	for i := 0; i < 3; i++ {
		suite.putItemInRoom(suite.world.Outside.ID, suite.world.Cake.ID, 1)
		suite.execute("take", "magic cake")
		suite.execute("eat", "magic cake")
	}

	resp := suite.execute("take", "dumbbell")
	assert.InDelta(suite.T(), 90.0, resp.CurrentWeight, 1e-9)
	assert.InDelta(suite.T(), 90.0, resp.MaxWeight, 1e-9)
}

// ==================== 查看与清单 ====================

func (suite *EngineTestSuite) TestLook() {
	resp := suite.execute("look", "")
	assert.Contains(suite.T(), resp.Message, "=== outside ===")
	assert.Contains(suite.T(), resp.Message, suite.world.Outside.Description)
	assert.Contains(suite.T(), resp.Message, "出口: east, west")
	assert.Contains(suite.T(), resp.Message, "dumbbell")
}

func (suite *EngineTestSuite) TestLook_TeleportHint() {
	suite.execute("go", "west")

	// 直接查看传送房间需要先进入——传送房间不可停留，
	// 但房间描述接口本身要能表达提示
	room := &models.Room{Name: "shrine", Description: "祭坛", IsTeleportRoom: true}
	desc := DescribeRoom(room)
	assert.Contains(suite.T(), desc, "传送门能量波动中")
}

func (suite *EngineTestSuite) TestItems() {
	suite.execute("go", "east") // lab: notebook x2 = 1.0kg
	suite.execute("take", "notebook")

	resp := suite.execute("items", "")
	assert.Equal(suite.T(), "物品清单", resp.Message)
	suite.Require().NotNil(resp.RoomTotalWeight)
	suite.Require().NotNil(resp.PlayerTotalWeight)
	assert.InDelta(suite.T(), 0.5, *resp.RoomTotalWeight, 1e-9)
	assert.InDelta(suite.T(), 0.5, *resp.PlayerTotalWeight, 1e-9)
}

// ==================== 并发 ====================

// singleConnection 把连接池压到1
// sqlite的:memory:库按连接隔离，并发测试必须共用同一个连接。
func (suite *EngineTestSuite) singleConnection() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
}

func (suite *EngineTestSuite) TestExecute_SameSessionSerialized() {
	suite.singleConnection()
	suite.execute("go", "east") // lab: notebook x2

	// 多个协程对同一会话并发执行拿/丢对。
	// 会话锁把命令串行化：每次take要么完整成功（随后drop还回去），
	// 要么因库存已被拿空而失败，不存在撕裂的中间态。
	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.engine.Execute(context.Background(), suite.token, "take", "notebook")
			if err != nil {
				suite.True(apperrors.Is(err, apperrors.ErrItemNotFound))
				return
			}
			_, err = suite.engine.Execute(context.Background(), suite.token, "drop", "notebook")
			suite.NoError(err)
		}()
	}
	wg.Wait()

	// 台账、缓存、房间库存全部回到初始状态
	resp := suite.execute("items", "")
	assert.Empty(suite.T(), resp.Inventory)
	assert.Zero(suite.T(), resp.CurrentWeight)
	suite.Require().Len(resp.Room.Items, 1)
	assert.Equal(suite.T(), 2, resp.Room.Items[0].Quantity)

	var ledger []models.PlayerInventory
	suite.Require().NoError(suite.db.Where("user_id = ?", suite.user.ID).Find(&ledger).Error)
	assert.Empty(suite.T(), ledger)

	// 并发的take/drop不碰历史栈，进入lab那一步是唯一的记录
	session, ok := suite.engine.SessionStore().Get(suite.user.ID)
	suite.Require().True(ok)
	assert.Equal(suite.T(), 1, session.HistorySize())
}

func (suite *EngineTestSuite) TestExecute_DistinctUsersRunInParallel() {
	suite.singleConnection()
	suite.createPlayer("player2", "secret456", suite.world.Pub.ID)
	token2 := suite.login("player2", "secret456")

	// 两个玩家并发执行命令，互不阻塞也互不串位
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			resp, err := suite.engine.Execute(context.Background(), suite.token, "look", "")
			suite.NoError(err)
			suite.Equal("outside", resp.Room.Name)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			resp, err := suite.engine.Execute(context.Background(), token2, "look", "")
			suite.NoError(err)
			suite.Equal("pub", resp.Room.Name)
		}
	}()
	wg.Wait()

	assert.Equal(suite.T(), 2, suite.engine.SessionStore().Len())
}

// ==================== 分发 ====================

func (suite *EngineTestSuite) TestUnknownCommand() {
	_, err := suite.engine.Execute(context.Background(), suite.token, "fly", "")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrUnknownCommand))

	appErr := err.(*apperrors.AppError)
	assert.Contains(suite.T(), appErr.UserMessage(), "未知命令: fly")
}

func (suite *EngineTestSuite) TestInvalidToken() {
	_, err := suite.engine.Execute(context.Background(), "no-such-token", "look", "")
	assert.True(suite.T(), apperrors.Is(err, apperrors.ErrSessionNotFound))
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
