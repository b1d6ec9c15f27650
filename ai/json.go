// Package ai 提供 LLM / Embedding 客户端共用的工具，以及不依赖外部服务的 Embedder 实现。
//
// 具体的服务端适配见子包 ai/openai 与 ai/ollama。
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// UnmarshalFlexible 容错地把模型输出解码到 out。
//
// 依次尝试：
//  1. 标准 JSON
//  2. 被二次编码为字符串的 JSON
//  3. 去掉重复的起始 '{'，交给 jsonrepair 修复后再解码
//
// 也会剥离 ```json 代码块围栏。
func UnmarshalFlexible(input string, out any) error {
	input = stripFence(strings.TrimSpace(input))
	if input == "" {
		return fmt.Errorf("empty model output")
	}

	if err := json.Unmarshal([]byte(input), out); err == nil {
		return nil
	}

	var asString string
	if err := json.Unmarshal([]byte(input), &asString); err == nil {
		asString = strings.TrimSpace(asString)
		if err := json.Unmarshal([]byte(asString), out); err == nil {
			return nil
		}
		input = asString
	}

	input = stripDuplicateLeadingBrace(input)
	repaired, err := jsonrepair.JSONRepair(input)
	if err != nil {
		return fmt.Errorf("json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("unmarshal failed after repair: %w", err)
	}
	return nil
}

func stripDuplicateLeadingBrace(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		rest := strings.TrimSpace(s[1:])
		if strings.HasPrefix(rest, "{") {
			return rest
		}
	}
	return s
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
