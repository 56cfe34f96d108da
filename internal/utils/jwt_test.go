package utils

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager("test-secret-key", 1*time.Hour)
}

// 测试生成访问令牌
func (suite *JWTTestSuite) TestGenerateToken() {
	token, err := suite.manager.GenerateToken(123, "testuser", "session-token-123")
	suite.NoError(err)
	suite.NotEmpty(token)
}

// 测试验证令牌
func (suite *JWTTestSuite) TestValidateToken() {
	token, _ := suite.manager.GenerateToken(789, "validuser", "session-token-789")

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.NotNil(claims)
	suite.Equal(uint(789), claims.UserID)
	suite.Equal("validuser", claims.Username)
	suite.Equal("session-token-789", claims.SessionToken)
}

// 测试验证无效令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	claims, err := suite.manager.ValidateToken("invalid.token.format")
	suite.Error(err)
	suite.Nil(claims)

	// 错误的签名
	wrongManager := NewJWTManager("wrong-secret", 1*time.Hour)
	token, _ := wrongManager.GenerateToken(1, "user", "session")
	claims, err = suite.manager.ValidateToken(token)
	suite.Error(err)
	suite.Nil(claims)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestExpiredToken() {
	expiredManager := NewJWTManager("test-secret-key", -1*time.Hour)
	token, _ := expiredManager.GenerateToken(111, "expired", "session")

	claims, err := suite.manager.ValidateToken(token)
	suite.Error(err)
	suite.Nil(claims)
}

// 测试令牌的标准声明
func (suite *JWTTestSuite) TestStandardClaims() {
	token, _ := suite.manager.GenerateToken(1, "user", "session")
	claims, err := suite.manager.ValidateToken(token)
	suite.Require().NoError(err)

	suite.NotNil(claims.IssuedAt)
	suite.NotNil(claims.ExpiresAt)
	suite.Equal("adventure-server", claims.Issuer)
	suite.Greater(claims.ExpiresAt.Unix(), claims.IssuedAt.Unix())
}

// 测试并发生成令牌
func (suite *JWTTestSuite) TestConcurrentTokenGeneration() {
	done := make(chan bool, 10)

	for i := 0; i < 10; i++ {
		go func(id int) {
			token, err := suite.manager.GenerateToken(
				uint(id),
				fmt.Sprintf("user%d", id),
				fmt.Sprintf("session-%d", id),
			)
			suite.NoError(err)
			suite.NotEmpty(token)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
