package parsers

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DocxParser Word 文档解析器（.docx）
// .docx 本质是 ZIP 压缩包，正文在 word/document.xml 中
type DocxParser struct{}

// NewDocxParser 创建 DOCX 解析器
func NewDocxParser() *DocxParser {
	return &DocxParser{}
}

// Parse 解析 DOCX 文档，按段落拼接文本
func (p *DocxParser) Parse(reader io.Reader) (string, error) {
	// zip.NewReader 需要 ReaderAt，先读入内存
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取文档失败: %w", err)
	}

	zipReader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("打开 DOCX 失败: %w", err)
	}

	var documentXML []byte
	for _, file := range zipReader.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("打开 document.xml 失败: %w", err)
		}
		documentXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("读取 document.xml 失败: %w", err)
		}
		break
	}

	if documentXML == nil {
		return "", fmt.Errorf("无效的 DOCX 文件: 找不到 document.xml")
	}

	text, err := extractDocxText(documentXML)
	if err != nil {
		return "", fmt.Errorf("解析文档内容失败: %w", err)
	}

	return text, nil
}

// Extensions 支持的文件扩展名
func (p *DocxParser) Extensions() []string {
	return []string{".docx"}
}

// extractDocxText 流式遍历 XML，收集 w:t 文本节点
// 段落（w:p）结束时换行，保留文档的段落结构
func extractDocxText(xmlData []byte) (string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(xmlData))

	var result strings.Builder
	var para strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(para.String()); s != "" {
					if result.Len() > 0 {
						result.WriteString("\n")
					}
					result.WriteString(s)
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	if s := strings.TrimSpace(para.String()); s != "" {
		if result.Len() > 0 {
			result.WriteString("\n")
		}
		result.WriteString(s)
	}

	return result.String(), nil
}
