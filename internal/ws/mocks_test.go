package ws

import (
	"github.com/stretchr/testify/mock"
)

// ========== MockDocService ==========
// 实现 DocService 接口，用于 Hub 和 Room 的单元测试

type MockDocService struct {
	mock.Mock
}

func (m *MockDocService) GetDocState(title string) ([]byte, int64, error) {
	args := m.Called(title)
	// 处理 nil 情况
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]byte), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocService) DocExists(title string) (bool, error) {
	args := m.Called(title)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocService) SaveDocState(title string, state []byte, oldVersion, newVersion int64) error {
	args := m.Called(title, state, oldVersion, newVersion)
	return args.Error(0)
}
