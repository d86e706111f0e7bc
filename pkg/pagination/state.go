package pagination

import "context"

// Phase 分页状态机的阶段
type Phase int

const (
	// PhaseIdle 尚未加载
	PhaseIdle Phase = iota
	// PhaseLoadingInitial 正在加载第一页（初次加载或 refetch）
	PhaseLoadingInitial
	// PhaseReady 已加载，HasMore 决定是否还能继续
	PhaseReady
	// PhaseLoadingMore 正在加载后续页
	PhaseLoadingMore
	// PhaseError 最近一次加载失败，保留之前的条目
	PhaseError
)

// String 返回阶段名称
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingInitial:
		return "loading_initial"
	case PhaseReady:
		return "ready"
	case PhaseLoadingMore:
		return "loading_more"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Loading 是否有请求在途
func (p Phase) Loading() bool {
	return p == PhaseLoadingInitial || p == PhaseLoadingMore
}

// Request 一次分页请求
type Request struct {
	PageSize int
	Skip     int
	Filter   string
}

// PageFunc 拉取一页数据，通常绑定到 GraphQL 执行器
type PageFunc[T any] func(ctx context.Context, req Request) ([]T, error)

// state 集合状态，只由 reduce 修改
type state[T any] struct {
	phase      Phase
	items      []T
	skip       int
	hasMore    bool
	err        error
	filter     string
	generation uint64
}

// event 状态机输入
type event interface{ isEvent() }

// evReset 挂载 / refetch / 过滤参数变化
// setFilter 为 false 时沿用当前过滤参数，在持锁的 reduce 中解析
type evReset struct {
	filter    string
	setFilter bool
}

// evLoadMore 请求下一页
type evLoadMore struct{}

// evPageLoaded 页面加载成功
type evPageLoaded[T any] struct {
	generation uint64
	mode       Mode
	requested  int
	items      []T
}

// evPageFailed 页面加载失败
type evPageFailed struct {
	generation uint64
	err        error
}

func (evReset) isEvent()         {}
func (evLoadMore) isEvent()      {}
func (evPageLoaded[T]) isEvent() {}
func (evPageFailed) isEvent()    {}

// fetchCmd reduce 产出的副作用：发起一次拉取
type fetchCmd struct {
	generation uint64
	mode       Mode
	req        Request
}

// dropReason loadMore 被忽略的原因，空字符串表示未忽略
type dropReason string

const (
	dropNone      dropReason = ""
	dropInFlight  dropReason = "in_flight"
	dropExhausted dropReason = "exhausted"
)

// reduce 唯一的状态转移函数
// 返回新状态、需要执行的拉取（可能为 nil）以及 loadMore 被忽略的原因
func reduce[T Identifiable[T]](s state[T], ev event, pageSize int, policy CollisionPolicy) (state[T], *fetchCmd, dropReason) {
	switch e := ev.(type) {
	case evReset:
		filter := s.filter
		if e.setFilter {
			filter = e.filter
		}
		// 丢弃已累积的条目和偏移，旧请求的结果通过 generation 作废
		next := state[T]{
			phase:      PhaseLoadingInitial,
			hasMore:    true,
			filter:     filter,
			generation: s.generation + 1,
		}
		return next, &fetchCmd{
			generation: next.generation,
			mode:       ModeReplace,
			req:        Request{PageSize: pageSize, Skip: 0, Filter: filter},
		}, dropNone

	case evLoadMore:
		if s.phase.Loading() {
			return s, nil, dropInFlight
		}
		if s.phase == PhaseIdle {
			// 未挂载时的 loadMore 等价于首次加载
			return reduce(s, evReset{}, pageSize, policy)
		}
		if !s.hasMore {
			return s, nil, dropExhausted
		}

		next := s
		next.err = nil
		mode := ModeAppend
		if s.phase == PhaseError && s.skip == 0 {
			// 首页失败后的重试仍按首页处理
			next.phase = PhaseLoadingInitial
			mode = ModeReplace
		} else {
			next.phase = PhaseLoadingMore
		}
		return next, &fetchCmd{
			generation: next.generation,
			mode:       mode,
			req:        Request{PageSize: pageSize, Skip: s.skip, Filter: s.filter},
		}, dropNone

	case evPageLoaded[T]:
		if e.generation != s.generation || !s.phase.Loading() {
			// refetch 之后到达的旧结果
			return s, nil, dropNone
		}
		next := s
		next.items = Merge(s.items, e.items, e.mode, policy)
		if e.mode == ModeReplace {
			next.skip = len(e.items)
		} else {
			next.skip = s.skip + len(e.items)
		}
		if len(e.items) < e.requested {
			next.hasMore = false
		}
		next.err = nil
		next.phase = PhaseReady
		return next, nil, dropNone

	case evPageFailed:
		if e.generation != s.generation || !s.phase.Loading() {
			return s, nil, dropNone
		}
		next := s
		next.err = e.err
		next.phase = PhaseError
		return next, nil, dropNone
	}

	return s, nil, dropNone
}
