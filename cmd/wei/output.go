package main

import (
	"encoding/json"
	"fmt"
	"io"

	apperrors "github.com/NethermindEth/wei/pkg/errors"
)

// 退出码
const (
	exitFailure   = 1
	exitUserError = 2
)

// printJSON 以缩进 JSON 写出命令结果
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

// exitCode 参数和配置错误返回 2，其余失败返回 1
func exitCode(err error) int {
	if apperrors.IsInvalidArgument(err) || apperrors.IsConfigError(err) {
		return exitUserError
	}
	return exitFailure
}
