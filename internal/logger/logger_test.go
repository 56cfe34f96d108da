package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessorsBeforeInit(t *testing.T) {
	// 未初始化时各入口都要能拿到可用的日志器
	assert.NotNil(t, GetLogger())
	assert.NotNil(t, GetSugar())
	assert.NotNil(t, GetModuleLogger("game"))
	assert.NotNil(t, GetModuleLogger("no-such-module"))
}

func TestConcurrentAccessors(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NotNil(t, GetLogger())
				assert.NotNil(t, GetSugar())
				assert.NotNil(t, GetModuleLogger("game"))
			}
		}()
	}
	wg.Wait()
}
