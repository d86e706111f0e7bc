package agent

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	"github.com/NethermindEth/wei/pkg/monitoring"
)

// Adapter 单个功能的读取 / 刷新入口
//
// Get 直接读取，依赖后端的服务端缓存；Refresh 先等待缓存刷新完成，
// 再发起同样的读取。刷新失败时不会发起读取，错误原样返回。
type Adapter[Req, Resp any] struct {
	feature  string
	cache    *cachectl.Client
	describe func(Req) cachectl.Descriptor
	read     func(context.Context, Req) (Resp, error)
	validate func(Req) error
	log      *log.Helper
}

// AdapterOption 适配器选项
type AdapterOption[Req, Resp any] func(*Adapter[Req, Resp])

// WithValidation 读取和刷新前校验请求
func WithValidation[Req, Resp any](validate func(Req) error) AdapterOption[Req, Resp] {
	return func(a *Adapter[Req, Resp]) {
		a.validate = validate
	}
}

// NewAdapter 创建适配器
func NewAdapter[Req, Resp any](
	feature string,
	cache *cachectl.Client,
	describe func(Req) cachectl.Descriptor,
	read func(context.Context, Req) (Resp, error),
	logger log.Logger,
	opts ...AdapterOption[Req, Resp],
) *Adapter[Req, Resp] {
	if logger == nil {
		logger = log.DefaultLogger
	}
	a := &Adapter[Req, Resp]{
		feature:  feature,
		cache:    cache,
		describe: describe,
		read:     read,
		log:      log.NewHelper(log.With(logger, "module", "agent", "feature", feature)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Feature 功能名称
func (a *Adapter[Req, Resp]) Feature() string {
	return a.feature
}

// Descriptor 请求对应的缓存描述
func (a *Adapter[Req, Resp]) Descriptor(req Req) cachectl.Descriptor {
	return a.describe(req)
}

// Get 普通读取
func (a *Adapter[Req, Resp]) Get(ctx context.Context, req Req) (Resp, error) {
	if err := a.check(req); err != nil {
		var zero Resp
		return zero, err
	}

	resp, err := a.read(ctx, req)
	if err != nil {
		var zero Resp
		return zero, fmt.Errorf("%s: %w", a.feature, err)
	}
	return resp, nil
}

// Refresh 刷新缓存后重新读取
func (a *Adapter[Req, Resp]) Refresh(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	if err := a.check(req); err != nil {
		return zero, err
	}

	d := a.describe(req)
	if _, err := a.cache.Refresh(ctx, d); err != nil {
		monitoring.FeatureRefreshes.WithLabelValues(a.feature, "refresh_error").Inc()
		return zero, fmt.Errorf("%s: refresh %s: %w", a.feature, d.Description(), err)
	}
	a.log.Debugf("cache refreshed for %s, reading", d.Description())

	resp, err := a.read(ctx, req)
	monitoring.FeatureRefreshes.WithLabelValues(a.feature, monitoring.Outcome(err)).Inc()
	if err != nil {
		return zero, fmt.Errorf("%s: %w", a.feature, err)
	}
	return resp, nil
}

func (a *Adapter[Req, Resp]) check(req Req) error {
	if a.validate == nil {
		return nil
	}
	return a.validate(req)
}
