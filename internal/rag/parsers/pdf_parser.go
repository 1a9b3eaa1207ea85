package parsers

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dslipak/pdf"
)

// PDFParser PDF 文件解析器
// 逐页提取文本，单页失败跳过，整体无法打开才报错
type PDFParser struct{}

// NewPDFParser 创建 PDF 解析器
func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

// Parse 解析 PDF 文件
func (p *PDFParser) Parse(reader io.Reader) (string, error) {
	// pdf.NewReader 需要 ReaderAt，先读入内存
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取 PDF 内容失败: %w", err)
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开 PDF 失败: %w", err)
	}

	var buf strings.Builder
	parsed := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		buf.WriteString(text)
		buf.WriteString("\n")
		parsed++
	}

	if parsed == 0 {
		return "", fmt.Errorf("PDF 无可提取的文本页")
	}

	return strings.TrimSpace(buf.String()), nil
}

// Extensions 支持的文件扩展名
func (p *PDFParser) Extensions() []string {
	return []string{".pdf"}
}
