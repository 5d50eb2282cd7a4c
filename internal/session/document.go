package session

import (
	"sync"
	"time"
)

// DefaultDebounce 是本地编辑到持久化之间的静默窗口。
const DefaultDebounce = 500 * time.Millisecond

// PersistFunc 把文档写入持久化存储，返回写入后的版本。
type PersistFunc func(text string) (uint64, error)

// DocumentSync 持有共享文档在本会话中的副本。
// 本地编辑立即生效，在静默窗口结束后写穿到存储；远端更新按版本和文本判断是否应用。
type DocumentSync struct {
	mu       sync.Mutex
	text     string
	version  uint64
	debounce time.Duration
	persist  PersistFunc
	onError  func(error)

	timer   *time.Timer
	seq     uint64 // 每次本地编辑递增，过期的定时器据此放弃写入
	pending bool
	stopped bool
}

// NewDocumentSync 用房间的当前文档和版本初始化。
func NewDocumentSync(text string, version uint64, debounce time.Duration, persist PersistFunc, onError func(error)) *DocumentSync {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &DocumentSync{
		text:     text,
		version:  version,
		debounce: debounce,
		persist:  persist,
		onError:  onError,
	}
}

// SetLocalText 立即更新内存中的文本，并重新开始静默计时。
func (d *DocumentSync) SetLocalText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.text = text
	d.seq++
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	seq := d.seq
	d.timer = time.AfterFunc(d.debounce, func() { d.fire(seq) })
}

func (d *DocumentSync) fire(seq uint64) {
	d.mu.Lock()
	if d.stopped || seq != d.seq || !d.pending {
		d.mu.Unlock()
		return
	}
	text := d.text
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.write(text)
}

// write 不做重试，下一次编辑的静默周期就是重试
func (d *DocumentSync) write(text string) {
	version, err := d.persist(text)
	if err != nil {
		d.onError(err)
		return
	}
	d.mu.Lock()
	if version > d.version {
		d.version = version
	}
	d.mu.Unlock()
}

// OnRemoteUpdate 处理一次文档变更通知，返回本地文本是否改变。
// own 表示这是本会话自己写入的回声，只推进已知版本。
// 版本不大于已知版本或文本相同的更新不会被应用。
func (d *DocumentSync) OnRemoteUpdate(text string, version uint64, own bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || version <= d.version {
		return false
	}
	d.version = version
	if own || text == d.text {
		return false
	}
	// 远端后写入者胜出，尚未落盘的本地编辑被覆盖
	d.text = text
	d.cancelPendingLocked()
	return true
}

// Text 返回当前文本。
func (d *DocumentSync) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.text
}

// Version 返回已知的最新持久化版本。
func (d *DocumentSync) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Pending 报告是否有尚未写入的本地编辑。
func (d *DocumentSync) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush 立即写入尚未落盘的本地编辑。
func (d *DocumentSync) Flush() {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return
	}
	text := d.text
	d.cancelPendingLocked()
	d.mu.Unlock()

	d.write(text)
}

// Stop 取消挂起的写入，之后的所有调用都是空操作。
func (d *DocumentSync) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelPendingLocked()
	d.stopped = true
}

func (d *DocumentSync) cancelPendingLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}
