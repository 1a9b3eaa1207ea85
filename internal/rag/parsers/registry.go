package parsers

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Registry 按文件扩展名分派解析器
// 未注册的扩展名回退到纯文本解析，UTF-8 校验兜底
type Registry struct {
	byExt    map[string]Parser
	fallback Parser
}

// NewRegistry 创建带默认解析器的注册表
func NewRegistry() *Registry {
	r := &Registry{
		byExt:    make(map[string]Parser),
		fallback: NewTextParser(),
	}

	r.Register(NewTextParser())
	r.Register(NewPDFParser())
	r.Register(NewDocxParser())

	return r
}

// Register 注册解析器，同扩展名后注册者生效
func (r *Registry) Register(p Parser) {
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// Parse 按文件名选择解析器并提取文本
func (r *Registry) Parse(fileName string, reader io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	if p, ok := r.byExt[ext]; ok {
		text, err := p.Parse(reader)
		if err != nil {
			return "", fmt.Errorf("解析 %s 失败: %w", ext, err)
		}
		return text, nil
	}

	// 未知扩展名按纯文本尝试
	text, err := r.fallback.Parse(reader)
	if err != nil {
		return "", fmt.Errorf("不支持的文件格式 %s: %w", ext, err)
	}
	return text, nil
}
