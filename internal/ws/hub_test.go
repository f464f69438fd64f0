package ws

import (
	"sync"
	"testing"

	domainErrors "wikiedit-go-server/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// ========== Hub 单元测试 ==========
// 测试重点：GetOrCreateRoom 的并发安全性和缓存逻辑

func TestHub_GetOrCreateRoom_CacheHit(t *testing.T) {
	// 测试场景：缓存命中
	// 第一次调用应该调用 DocService.GetDocState
	// 第二次调用同一标题应该直接返回内存中的 Room，不再调用 DB

	mockService := new(MockDocService)
	hub := NewHub(mockService)

	initialState := []byte(`{"type":"document","children":[]}`)

	// 设置 Mock：第一次调用返回数据
	mockService.On("GetDocState", "Special:CollabPad/Sandbox").Return(initialState, int64(1), nil).Once()
	// SaveDocState 可能在 Room 销毁时被调用
	mockService.On("SaveDocState", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	// 第一次调用：应该从 DB 加载
	room1, err := hub.GetOrCreateRoom("Special:CollabPad/Sandbox")
	assert.NoError(t, err)
	assert.NotNil(t, room1)
	assert.Equal(t, "Special:CollabPad/Sandbox", room1.Title)

	// 第二次调用：应该返回缓存的 Room
	room2, err := hub.GetOrCreateRoom("Special:CollabPad/Sandbox")
	assert.NoError(t, err)
	assert.NotNil(t, room2)

	// 验证是同一个 Room 实例
	assert.Same(t, room1, room2)

	// 验证 GetDocState 只被调用了一次
	mockService.AssertNumberOfCalls(t, "GetDocState", 1)
}

func TestHub_GetOrCreateRoom_DocNotFound(t *testing.T) {
	// 测试场景：协同文档不存在
	// 当 DocService 返回 ErrDocNotFound 时，Hub 不应创建幽灵房间

	mockService := new(MockDocService)
	hub := NewHub(mockService)

	// 设置 Mock：返回 ErrDocNotFound
	mockService.On("GetDocState", "Special:CollabPad/Missing").Return(nil, int64(0), domainErrors.ErrDocNotFound)

	// 调用应该返回错误
	room, err := hub.GetOrCreateRoom("Special:CollabPad/Missing")

	assert.Nil(t, room)
	assert.ErrorIs(t, err, domainErrors.ErrDocNotFound)

	// 验证房间没有被创建
	assert.Nil(t, hub.GetRoom("Special:CollabPad/Missing"))
}

func TestHub_GetOrCreateRoom_Concurrent(t *testing.T) {
	// 测试场景：并发创建同一房间
	// 多个 goroutine 同时请求，GetDocState 只应被调用一次

	mockService := new(MockDocService)
	hub := NewHub(mockService)

	initialState := []byte(`{"type":"document","children":[]}`)
	mockService.On("GetDocState", "Special:CollabPad/Race").Return(initialState, int64(3), nil).Once()
	mockService.On("SaveDocState", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	const workers = 16
	rooms := make([]*Room, workers)
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			room, err := hub.GetOrCreateRoom("Special:CollabPad/Race")
			assert.NoError(t, err)
			rooms[idx] = room
		}(i)
	}
	wg.Wait()

	// 所有 goroutine 拿到的必须是同一个实例
	for i := 1; i < workers; i++ {
		assert.Same(t, rooms[0], rooms[i])
	}
	mockService.AssertNumberOfCalls(t, "GetDocState", 1)
}

func TestHub_CloseRoom(t *testing.T) {
	// 测试场景：删除文档时强制关闭房间
	// 关闭后房间从目录中移除，且销毁前完成刷盘

	mockService := new(MockDocService)
	hub := NewHub(mockService)

	initialState := []byte(`{"type":"document","children":[]}`)
	mockService.On("GetDocState", "Special:CollabPad/Doomed").Return(initialState, int64(1), nil).Once()
	mockService.On("SaveDocState", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	room, err := hub.GetOrCreateRoom("Special:CollabPad/Doomed")
	assert.NoError(t, err)

	// 制造未持久化的修改，验证关闭时会刷盘
	err = room.ApplyPatch([]byte(`[{"op":"add","path":"/dirty","value":true}]`), 1)
	assert.NoError(t, err)

	hub.CloseRoom("Special:CollabPad/Doomed")

	assert.Nil(t, hub.GetRoom("Special:CollabPad/Doomed"))
	mockService.AssertCalled(t, "SaveDocState", "Special:CollabPad/Doomed",
		mock.Anything, int64(1), int64(2))
}

func TestHub_CloseRoom_NotInMemory(t *testing.T) {
	// 关闭一个不在内存中的房间应该是安全的空操作
	mockService := new(MockDocService)
	hub := NewHub(mockService)

	hub.CloseRoom("Special:CollabPad/Nowhere")
	assert.Nil(t, hub.GetRoom("Special:CollabPad/Nowhere"))
}
