package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/adventure-server/internal/config"
	"github.com/wfunc/adventure-server/internal/game"
	"github.com/wfunc/adventure-server/internal/models"
	"github.com/wfunc/adventure-server/internal/repository"
	"github.com/wfunc/adventure-server/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APITestSuite HTTP接口集成测试套件
type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	world  *repository.TestWorld
	router *Router
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = repository.SetupTestDB()
	suite.world = repository.SeedTestWorld(suite.T(), suite.db)

	hash, err := utils.HashPassword("password1")
	suite.Require().NoError(err)
	roomID := suite.world.Outside.ID
	user := &models.User{
		Username:       "player1",
		Password:       hash,
		CurrentRoomID:  &roomID,
		MaxCarryWeight: 50,
	}
	suite.Require().NoError(suite.db.Create(user).Error)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Game: config.GameConfig{
			SessionTimeout:        30 * time.Minute,
			StartRoom:             "outside",
			DefaultMaxCarryWeight: 50,
			WeightBoost:           10,
			SpecialItemName:       "magic cake",
			TeleportSeed:          42,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		},
	}

	engine := game.NewEngine(suite.db, &cfg.Game, zap.NewNop())
	suite.router = NewRouter(suite.db, cfg, engine, zap.NewNop())
}

func (suite *APITestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// doJSON 发送JSON请求
func (suite *APITestSuite) doJSON(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.GetEngine().ServeHTTP(w, req)
	return w
}

// login 登录并返回访问令牌
func (suite *APITestSuite) login() string {
	w := suite.doJSON(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Username: "player1",
		Password: "password1",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp AuthResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().NotEmpty(resp.AccessToken)
	return resp.AccessToken
}

func (suite *APITestSuite) TestHealthCheck() {
	w := suite.doJSON(http.MethodGet, "/health", "", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestLogin() {
	w := suite.doJSON(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Username: "player1",
		Password: "password1",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp AuthResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("Bearer", resp.TokenType)
	suite.NotEmpty(resp.AccessToken)
	suite.Require().NotNil(resp.State)
	suite.True(resp.State.Success)
	suite.Equal("outside", resp.State.Room.Name)
}

func (suite *APITestSuite) TestLogin_WrongPassword() {
	w := suite.doJSON(http.MethodPost, "/api/v1/auth/login", "", LoginRequest{
		Username: "player1",
		Password: "wrong",
	})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestLogin_MissingFields() {
	w := suite.doJSON(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "player1",
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestCommand_RequiresAuth() {
	w := suite.doJSON(http.MethodPost, "/api/v1/game/command", "", CommandRequest{Input: "look"})
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.doJSON(http.MethodPost, "/api/v1/game/command", "not-a-jwt", CommandRequest{Input: "look"})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *APITestSuite) TestCommand_Go() {
	token := suite.login()

	w := suite.doJSON(http.MethodPost, "/api/v1/game/command", token, CommandRequest{
		Command:  "go",
		Argument: "east",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp game.Response
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.Equal("lab", resp.Room.Name)
}

func (suite *APITestSuite) TestCommand_RawInput() {
	token := suite.login()

	w := suite.doJSON(http.MethodPost, "/api/v1/game/command", token, CommandRequest{
		Input: "GO east",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp game.Response
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("lab", resp.Room.Name)
}

func (suite *APITestSuite) TestCommand_RecoverableFailure() {
	token := suite.login()

	// 游戏规则错误以200返回失败结果
	w := suite.doJSON(http.MethodPost, "/api/v1/game/command", token, CommandRequest{
		Command:  "take",
		Argument: "unicorn",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp FailureResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.False(resp.Success)
	suite.Contains(resp.Message, "unicorn")
}

func (suite *APITestSuite) TestRestore() {
	token := suite.login()

	w := suite.doJSON(http.MethodPost, "/api/v1/game/restore", token, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp game.Response
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.Success)
	suite.Equal("outside", resp.Room.Name)
}

func (suite *APITestSuite) TestLogin_ReplacesOldSession() {
	first := suite.login()
	second := suite.login()
	suite.NotEqual(first, second)

	// 旧JWT携带的游戏会话令牌已被轮换
	w := suite.doJSON(http.MethodPost, "/api/v1/game/restore", first, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.doJSON(http.MethodPost, "/api/v1/game/restore", second, nil)
	suite.Equal(http.StatusOK, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
