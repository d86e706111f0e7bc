package pagination

import (
	"context"
	"sync"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/NethermindEth/wei/pkg/monitoring"
)

// DefaultPageSize 默认每页条数
const DefaultPageSize = 20

// Snapshot 对外暴露的只读状态
type Snapshot[T any] struct {
	Items   []T
	Phase   Phase
	Loading bool
	HasMore bool
	Skip    int
	Filter  string
	Err     error
}

// Options 控制器选项
type Options struct {
	// Name 集合名称，用于日志和指标
	Name string
	// PageSize 每页条数
	PageSize int
	// Policy 同 id 冲突策略
	Policy CollisionPolicy
	// Filter 初始过滤参数（例如 space id）
	Filter string
}

// Controller 分页控制器
//
// 所有可变状态由控制器持有，调用方只能通过命令方法（Start、LoadMore、
// Refetch、SetFilter）驱动状态机，通过 Snapshot / Subscribe 读取状态。
// 任一时刻最多一个有效请求在途：loadMore 在加载中或已耗尽时被直接忽略。
type Controller[T Identifiable[T]] struct {
	fetch    PageFunc[T]
	pageSize int
	policy   CollisionPolicy
	name     string
	log      *log.Helper

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	st          state[T]
	cancelFetch context.CancelFunc
	inflight    chan struct{}
	subscribers map[int]chan Snapshot[T]
	nextSubID   int
	closed      bool
}

// NewController 创建分页控制器，状态为 Idle，调用 Start 开始加载
func NewController[T Identifiable[T]](fetch PageFunc[T], opts Options, logger log.Logger) *Controller[T] {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Name == "" {
		opts.Name = "collection"
	}
	if logger == nil {
		logger = log.DefaultLogger
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller[T]{
		fetch:       fetch,
		pageSize:    opts.PageSize,
		policy:      opts.Policy,
		name:        opts.Name,
		log:         log.NewHelper(log.With(logger, "module", "pagination", "collection", opts.Name)),
		ctx:         ctx,
		cancel:      cancel,
		st:          state[T]{phase: PhaseIdle, hasMore: true, filter: opts.Filter},
		subscribers: make(map[int]chan Snapshot[T]),
	}
}

// Start 加载第一页（挂载）
func (c *Controller[T]) Start() {
	c.dispatch(evReset{})
}

// Refetch 丢弃已加载的条目，从 skip=0 重新加载
// 任意状态下都可调用，在途请求的结果会被丢弃
func (c *Controller[T]) Refetch() {
	c.Start()
}

// SetFilter 切换过滤参数，等价于对新参数 refetch
func (c *Controller[T]) SetFilter(filter string) {
	c.dispatch(evReset{filter: filter, setFilter: true})
}

// LoadMore 加载下一页
// 返回 false 表示调用被忽略（加载中、已耗尽或控制器已关闭）
func (c *Controller[T]) LoadMore() bool {
	return c.dispatch(evLoadMore{})
}

// Snapshot 返回当前状态的副本
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait 阻塞直到没有请求在途
func (c *Controller[T]) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		ch := c.inflight
		c.mu.Unlock()

		if ch == nil {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Subscribe 订阅状态变化，只保留最新一次快照
// 返回的函数用于取消订阅
func (c *Controller[T]) Subscribe() (<-chan Snapshot[T], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Snapshot[T], 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close 卸载：取消在途请求，之后到达的结果被丢弃，订阅通道被关闭
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	c.st.generation++
	if c.inflight != nil {
		close(c.inflight)
		c.inflight = nil
	}
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
}

// dispatch 把事件交给 reduce，并执行其产出的拉取
func (c *Controller[T]) dispatch(ev event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	next, cmd, dropped := reduce(c.st, ev, c.pageSize, c.policy)
	if dropped != dropNone {
		monitoring.PageLoadsDropped.WithLabelValues(c.name, string(dropped)).Inc()
		c.log.Debugf("loadMore ignored: %s", dropped)
		return false
	}

	c.st = next
	if cmd != nil {
		c.startFetchLocked(cmd)
	}
	c.notifyLocked()
	return true
}

// startFetchLocked 发起拉取；新的 generation 会取消上一个在途请求
func (c *Controller[T]) startFetchLocked(cmd *fetchCmd) {
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	if c.inflight != nil {
		close(c.inflight)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	done := make(chan struct{})
	c.cancelFetch = cancel
	c.inflight = done

	kind := "more"
	if cmd.mode == ModeReplace {
		kind = "initial"
	}
	c.log.Debugf("fetch %s page: skip=%d size=%d filter=%q", kind, cmd.req.Skip, cmd.req.PageSize, cmd.req.Filter)

	go func() {
		defer cancel()

		items, err := c.fetch(ctx, cmd.req)
		monitoring.PageLoads.WithLabelValues(c.name, kind, monitoring.Outcome(err)).Inc()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed || cmd.generation != c.st.generation {
			c.log.Debugf("discard stale %s page (generation %d)", kind, cmd.generation)
			return
		}

		var ev event
		if err != nil {
			c.log.Warnf("fetch %s page failed: %v", kind, err)
			ev = evPageFailed{generation: cmd.generation, err: err}
		} else {
			ev = evPageLoaded[T]{generation: cmd.generation, mode: cmd.mode, requested: cmd.req.PageSize, items: items}
		}

		c.st, _, _ = reduce(c.st, ev, c.pageSize, c.policy)
		if c.inflight == done {
			close(done)
			c.inflight = nil
			c.cancelFetch = nil
		}
		c.notifyLocked()
	}()
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	items := make([]T, len(c.st.items))
	copy(items, c.st.items)
	return Snapshot[T]{
		Items:   items,
		Phase:   c.st.phase,
		Loading: c.st.phase.Loading(),
		HasMore: c.st.hasMore,
		Skip:    c.st.skip,
		Filter:  c.st.filter,
		Err:     c.st.err,
	}
}

// notifyLocked 推送最新快照，订阅方来不及消费时覆盖旧值
func (c *Controller[T]) notifyLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
