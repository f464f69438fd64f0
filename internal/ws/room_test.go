package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// ========== Room 单元测试 ==========
// 测试重点：ApplyPatch 方法和刷盘逻辑

// 创建测试用的 Room（不启动事件循环）
func newTestRoom(title string, initialState []byte, version int64, mockService *MockDocService) *Room {
	return &Room{
		Title:                title,
		CurrentState:         initialState,
		Version:              version,
		lastPersistedVersion: version,
		clients:              make(map[*Client]bool),
		broadcast:            make(chan *RoomBroadcast, 256),
		register:             make(chan *Client),
		unregister:           make(chan *Client),
		stopChan:             make(chan struct{}),
		stopped:              make(chan struct{}),
		flushTicker:          time.NewTicker(FlushInterval),
		docService:           mockService,
	}
}

func TestRoom_ApplyPatch_Success(t *testing.T) {
	// 测试场景：正常 Patch 应用
	// 版本号 +1，State 更新

	mockService := new(MockDocService)

	initialState := []byte(`{"type":"document","title":"Sandbox","children":[]}`)
	room := newTestRoom("Special:CollabPad/Sandbox", initialState, 1, mockService)

	// RFC 6902 格式: [{"op": "replace", "path": "/title", "value": "Renamed"}]
	patchBytes := []byte(`[{"op": "replace", "path": "/title", "value": "Renamed"}]`)

	// 应用 Patch（版本号必须匹配）
	err := room.ApplyPatch(patchBytes, 1) // expectedVersion = 1

	assert.NoError(t, err)
	assert.Equal(t, int64(2), room.Version) // 版本号递增

	// 验证状态已更新
	snapshot, version := room.GetSnapshot()
	assert.Equal(t, int64(2), version)
	assert.Contains(t, string(snapshot), `"title":"Renamed"`)
}

func TestRoom_ApplyPatch_VersionConflict(t *testing.T) {
	// 测试场景：版本冲突（乐观锁检查）
	// 传入错误的 expectedVersion，断言返回 VersionConflictError

	mockService := new(MockDocService)

	initialState := []byte(`{"type":"document","children":[]}`)
	room := newTestRoom("Special:CollabPad/Sandbox", initialState, 5, mockService)

	patchBytes := []byte(`[{"op": "add", "path": "/test", "value": "hello"}]`)

	// 传入错误的版本号 3（期望 5）
	err := room.ApplyPatch(patchBytes, 3)

	assert.Error(t, err)

	var versionErr *VersionConflictError
	assert.ErrorAs(t, err, &versionErr)
	assert.Equal(t, int64(5), versionErr.CurrentVersion)
	assert.Equal(t, int64(3), versionErr.ExpectedVersion)

	// 版本号不应该改变
	assert.Equal(t, int64(5), room.Version)
}

func TestRoom_ApplyPatch_InvalidPatch(t *testing.T) {
	// 测试场景：Patch 不是合法的 RFC 6902 数组

	mockService := new(MockDocService)
	room := newTestRoom("Special:CollabPad/Sandbox", []byte(`{}`), 1, mockService)

	err := room.ApplyPatch([]byte(`not-json`), 1)

	var patchErr *PatchError
	assert.ErrorAs(t, err, &patchErr)
	assert.Equal(t, int64(1), room.Version)
}

func TestRoom_FlushToDB_VersionSkip(t *testing.T) {
	// 测试场景：刷盘支持版本跳跃
	// 内存积累了多个版本，一次性写入，WHERE 条件用上次持久化的版本

	mockService := new(MockDocService)
	room := newTestRoom("Special:CollabPad/Sandbox", []byte(`{"n":0}`), 1, mockService)

	// 连续应用 3 个 Patch：版本 1 → 4
	for i := 1; i <= 3; i++ {
		patch := []byte(`[{"op": "replace", "path": "/n", "value": ` + string(rune('0'+i)) + `}]`)
		assert.NoError(t, room.ApplyPatch(patch, int64(i)))
	}
	assert.Equal(t, int64(4), room.Version)

	// 期望一次刷盘：oldVersion=1（上次持久化），newVersion=4（当前）
	mockService.On("SaveDocState", "Special:CollabPad/Sandbox", mock.Anything, int64(1), int64(4)).
		Return(nil).Once()

	room.flushToDB("测试")

	mockService.AssertExpectations(t)
	assert.Equal(t, int64(4), room.lastPersistedVersion)
}

func TestRoom_FlushToDB_NoChanges(t *testing.T) {
	// 没有未持久化的修改时不应触发写库
	mockService := new(MockDocService)
	room := newTestRoom("Special:CollabPad/Sandbox", []byte(`{}`), 7, mockService)

	room.flushToDB("测试")

	mockService.AssertNotCalled(t, "SaveDocState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRoom_StopWithReason_FlushesBeforeExit(t *testing.T) {
	// 测试场景：强制关闭时先刷盘再退出，Stop 阻塞到完成
	mockService := new(MockDocService)

	initialState := []byte(`{"type":"document","children":[]}`)
	mockService.On("SaveDocState", "Special:CollabPad/Doomed", mock.Anything, int64(1), int64(2)).
		Return(nil).Once()

	room := NewRoom("Special:CollabPad/Doomed", initialState, 1, mockService, nil)
	assert.NoError(t, room.ApplyPatch([]byte(`[{"op":"add","path":"/x","value":1}]`), 1))

	room.StopWithReason(ErrDocDeleted, "文档已被删除")

	mockService.AssertExpectations(t)
	assert.True(t, room.IsStopping())
}
