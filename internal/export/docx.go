// Package export собирает .docx документ утверждённого предложения.
// Документ формируется вручную в формате OOXML: минимальный пакет из
// [Content_Types].xml, _rels/.rels и word/document.xml, без стилей.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"

	"github.com/ignatzorin/proposal-backend/internal/models"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Filename формирует безопасное имя файла экспорта: не-алфавитноцифровые
// символы заменяются подчёркиванием, версия добавляется суффиксом.
func Filename(title string, version int) string {
	base := strings.Trim(filenameSanitizer.ReplaceAllString(title, "_"), "_")
	if base == "" {
		base = "proposal"
	}
	return fmt.Sprintf("%s_v%d.docx", base, version)
}

// BuildDocx собирает документ: заголовок, блок метаданных, заметки опроса
// и секции в порядке их следования.
func BuildDocx(details *models.ProposalDetails) ([]byte, error) {
	var doc bytes.Buffer
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	writeParagraph(&doc, details.Title, true, 36)
	writeParagraph(&doc, "", false, 0)

	writeParagraph(&doc, "Status: "+details.Status, false, 0)
	writeParagraph(&doc, "Schema: "+details.SchemaName, false, 0)
	writeParagraph(&doc, fmt.Sprintf("Version: %d", details.CurrentVersion), false, 0)
	writeParagraph(&doc, "Created: "+details.CreatedAt.Format("2006-01-02"), false, 0)
	writeParagraph(&doc, "", false, 0)

	if strings.TrimSpace(details.SurveyNotes) != "" {
		writeParagraph(&doc, "Survey Notes", true, 28)
		writeTextBlock(&doc, details.SurveyNotes)
		writeParagraph(&doc, "", false, 0)
	}

	for _, section := range details.Sections {
		heading := section.Type
		if heading == "" {
			heading = "Section"
		}
		writeParagraph(&doc, heading, true, 28)
		writeTextBlock(&doc, section.Content)
		writeParagraph(&doc, "", false, 0)
	}

	doc.WriteString(`</w:body></w:document>`)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	files := []struct {
		name    string
		content string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", doc.String()},
	}

	for _, f := range files {
		w, err := zw.Create(f.name)
		if err != nil {
			return nil, fmt.Errorf("export: создание %s: %w", f.name, err)
		}
		if _, err := w.Write([]byte(f.content)); err != nil {
			return nil, fmt.Errorf("export: запись %s: %w", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("export: закрытие архива: %w", err)
	}

	return buf.Bytes(), nil
}

// writeTextBlock выводит многострочный текст отдельными абзацами.
func writeTextBlock(doc *bytes.Buffer, text string) {
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		writeParagraph(doc, line, false, 0)
	}
}

// writeParagraph выводит один абзац. Размер задаётся в полупунктах, 0 — дефолтный.
func writeParagraph(doc *bytes.Buffer, text string, bold bool, size int) {
	doc.WriteString(`<w:p><w:r>`)
	if bold || size > 0 {
		doc.WriteString(`<w:rPr>`)
		if bold {
			doc.WriteString(`<w:b/>`)
		}
		if size > 0 {
			fmt.Fprintf(doc, `<w:sz w:val="%d"/>`, size)
		}
		doc.WriteString(`</w:rPr>`)
	}
	doc.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(doc, []byte(text))
	doc.WriteString(`</w:t></w:r></w:p>`)
}
