package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NethermindEth/wei/pkg/clients/cachectl"
	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

// RoadmapKinds 允许的主体类型
var RoadmapKinds = []string{"protocol", "DAO", "company", "country", "product", "other"}

const roadmapDateLayout = "2006-01-02"

// RoadmapRequest 路线图生成请求
type RoadmapRequest struct {
	Subject string `json:"subject"`
	Kind    string `json:"kind"`
	Scope   string `json:"scope"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

// Validate 校验请求
func (r RoadmapRequest) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return apperrors.NewInvalidArgument("roadmap subject is required")
	}

	valid := false
	for _, k := range RoadmapKinds {
		if r.Kind == k {
			valid = true
			break
		}
	}
	if !valid {
		return apperrors.NewInvalidArgument(fmt.Sprintf("roadmap kind %q must be one of %s", r.Kind, strings.Join(RoadmapKinds, ", ")))
	}

	var from, to time.Time
	var err error
	if r.From != "" {
		if from, err = time.Parse(roadmapDateLayout, r.From); err != nil {
			return apperrors.NewInvalidArgument(fmt.Sprintf("roadmap from %q is not YYYY-MM-DD", r.From))
		}
	}
	if r.To != "" {
		if to, err = time.Parse(roadmapDateLayout, r.To); err != nil {
			return apperrors.NewInvalidArgument(fmt.Sprintf("roadmap to %q is not YYYY-MM-DD", r.To))
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return apperrors.NewInvalidArgument("roadmap to must not be before from")
	}
	return nil
}

// RoadmapDomain 路线图主体
type RoadmapDomain struct {
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	Scope          string          `json:"scope"`
	AsOf           string          `json:"as_of"`
	ResearchWindow *ResearchWindow `json:"research_window,omitempty"`
}

// ResearchWindow 调研时间窗
type ResearchWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RoadmapProblem 待解决的问题
type RoadmapProblem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Stream       string `json:"stream"`
	Severity     string `json:"severity"`
	Horizon      string `json:"horizon"`
	ExitCriteria string `json:"exit_criteria"`
	Status       string `json:"status,omitempty"`
}

// RoadmapIntervention 已有或计划中的措施
type RoadmapIntervention struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Stream    string   `json:"stream"`
	Status    string   `json:"status"`
	Timeframe string   `json:"timeframe,omitempty"`
	Goal      string   `json:"goal,omitempty"`
	Deps      []string `json:"deps,omitempty"`
}

// RoadmapSource 引用来源
type RoadmapSource struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	PublishedAt string `json:"published_at,omitempty"`
	RetrievedAt string `json:"retrieved_at"`
	Credibility string `json:"credibility,omitempty"`
}

// RoadmapResponse 路线图
// 指标、关联和元数据的结构较松散，保持原始 JSON
type RoadmapResponse struct {
	SchemaVersion    string                `json:"schema_version"`
	Domain           RoadmapDomain         `json:"domain"`
	Streams          []string              `json:"streams"`
	FitnessFunctions json.RawMessage       `json:"fitness_functions,omitempty"`
	Problems         []RoadmapProblem      `json:"problems"`
	Interventions    []RoadmapIntervention `json:"interventions"`
	Proposals        json.RawMessage       `json:"proposals,omitempty"`
	Links            json.RawMessage       `json:"links,omitempty"`
	Sources          []RoadmapSource       `json:"sources"`
	Metadata         json.RawMessage       `json:"metadata,omitempty"`
}

// roadmapEnvelope 后端把路线图包在 result.response 中
type roadmapEnvelope struct {
	Result *struct {
		Response *RoadmapResponse `json:"response"`
	} `json:"result"`
	CacheInfo json.RawMessage `json:"cache_info,omitempty"`
}

func describeRoadmap(req RoadmapRequest) cachectl.Descriptor {
	return cachectl.RoadmapDescriptor(req)
}

func (c *Client) generateRoadmap(ctx context.Context, req RoadmapRequest) (*RoadmapResponse, error) {
	var env roadmapEnvelope
	if err := c.base.Post(ctx, "/roadmap", req, &env); err != nil {
		return nil, err
	}
	if env.Result == nil || env.Result.Response == nil {
		return nil, apperrors.NewRemoteError(502, "roadmap response missing result.response")
	}
	return env.Result.Response, nil
}
