package rag

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// charsPerToken 字符数与 token 数的近似换算比
// 没有分词器时 token 数按字符长度/4 估算; 非拉丁文本或代码会有 ±20% 左右的漂移,
// 下游预算必须容忍该误差
const charsPerToken = 4

// Chunker 文档分块器
// 按固定字符窗口切分，相邻窗口保留重叠，保证分块边界只由字符位置决定,
// 同一文档重复摄取产生完全相同的边界
type Chunker struct {
	TargetTokens  int // 每个分块的目标 token 数
	OverlapTokens int // 相邻分块的重叠 token 数

	enc *tiktoken.Tiktoken
}

// NewChunker 创建分块器
// targetTokens: 每个分块的目标 token 数（默认 900）
// overlapTokens: 相邻分块之间的重叠 token 数（默认 120）
func NewChunker(targetTokens, overlapTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = 900
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if overlapTokens >= targetTokens {
		overlapTokens = targetTokens / 10
	}

	// token 计数优先用 tiktoken，加载失败则退回字符估算
	// 分块边界不依赖分词器，两种计数方式下切分结果一致
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}

	return &Chunker{
		TargetTokens:  targetTokens,
		OverlapTokens: overlapTokens,
		enc:           enc,
	}
}

// ChunkResult 分块结果
type ChunkResult struct {
	Content     string // 分块内容
	Index       int    // 分块索引（从0开始）
	From        int    // 起始字符偏移（规范化文本内）
	To          int    // 结束字符偏移（不含）
	TokenCount  int    // token 数量（近似）
	ContentHash string // 内容哈希（SHA256）
}

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	blankLineRun = regexp.MustCompile(`\n{4,}`)
)

// NormalizeText 规范化文本
// 去除 \r 和 \f，水平空白折叠为单个空格，连续空行最多保留两行
func NormalizeText(text string) string {
	text = strings.NewReplacer("\r", "", "\f", "").Replace(text)
	text = horizontalWS.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n\n")
	return text
}

// Chunk 对文档内容进行分块
// 输入先规范化再按字符窗口切分; 输入短于一个窗口（包括空串）时返回恰好一个分块,
// 永远不会返回零个分块
func (c *Chunker) Chunk(content string) []*ChunkResult {
	normalized := NormalizeText(content)
	runes := []rune(normalized)
	total := len(runes)

	window := c.TargetTokens * charsPerToken
	overlap := c.OverlapTokens * charsPerToken
	step := window - overlap

	if total <= window {
		return []*ChunkResult{c.newChunk(string(runes), 0, 0, total)}
	}

	chunks := make([]*ChunkResult, 0, total/step+1)
	index := 0

	for start := 0; start < total; start += step {
		end := start + window
		if end > total {
			end = total
		}

		chunks = append(chunks, c.newChunk(string(runes[start:end]), index, start, end))
		index++

		if end >= total {
			break
		}
	}

	return chunks
}

// newChunk 构造单个分块结果
func (c *Chunker) newChunk(content string, index, from, to int) *ChunkResult {
	return &ChunkResult{
		Content:     content,
		Index:       index,
		From:        from,
		To:          to,
		TokenCount:  c.countTokens(content),
		ContentHash: hashContent(content),
	}
}

// countTokens 估算 token 数量
func (c *Chunker) countTokens(text string) int {
	if c.enc != nil {
		return len(c.enc.Encode(text, nil, nil))
	}
	n := len([]rune(text))
	return (n + charsPerToken - 1) / charsPerToken
}

// hashContent 计算内容哈希
func hashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", hash)
}
