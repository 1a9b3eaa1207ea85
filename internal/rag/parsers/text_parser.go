package parsers

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// TextParser 纯文本解析器
// 内容原样返回，空文件也算合法文档
type TextParser struct{}

// NewTextParser 创建文本解析器
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse 读取全部内容并校验 UTF-8 编码
func (p *TextParser) Parse(reader io.Reader) (string, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取文件失败: %w", err)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("文件不是合法的 UTF-8 文本")
	}

	return string(content), nil
}

// Extensions 支持的文件扩展名
func (p *TextParser) Extensions() []string {
	return []string{".txt", ".md", ".markdown"}
}
