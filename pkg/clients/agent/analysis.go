package agent

import (
	"context"
	"encoding/json"
	"strings"

	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

// AnalysisRequest 提案分析请求，后端只需要描述文本
type AnalysisRequest struct {
	Description string `json:"description"`
}

// NewAnalysisRequest 由提案标题和正文组成分析描述
func NewAnalysisRequest(title, body string) AnalysisRequest {
	return AnalysisRequest{Description: title + "\n\n" + body}
}

// AnalysisResponse 提案分析结果
// structured_response 的结构由后端的模型输出决定，保持原始 JSON
type AnalysisResponse struct {
	StructuredResponse json.RawMessage `json:"structured_response"`
}

// Decode 把结构化结果解码到 v
func (r *AnalysisResponse) Decode(v any) error {
	return json.Unmarshal(r.StructuredResponse, v)
}

func validateAnalysis(req AnalysisRequest) error {
	if strings.TrimSpace(req.Description) == "" {
		return apperrors.NewInvalidArgument("proposal description is required")
	}
	return nil
}

func (c *Client) analyze(ctx context.Context, req AnalysisRequest) (*AnalysisResponse, error) {
	var resp AnalysisResponse
	if err := c.base.Post(ctx, "/pre-filter", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
