package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/proposal-backend/internal/models"
)

func TestFilename(t *testing.T) {
	assert.Equal(t, "Proposal_for_ACME_v3.docx", Filename("Proposal for ACME!", 3))
	assert.Equal(t, "proposal_v1.docx", Filename("***", 1))
	assert.Equal(t, "proposal_v2.docx", Filename("Предложение", 2))
}

func TestBuildDocx(t *testing.T) {
	details := &models.ProposalDetails{
		Proposal: models.Proposal{
			Title:          "Proposal & Co",
			Status:         models.ProposalStatusApproved,
			CurrentVersion: 2,
			SurveyNotes:    "Заметки опроса\nв две строки",
			Sections: []models.GeneratedSection{
				{Type: "intro", Content: "Вступление <текст>", Order: 1},
				{Type: "pricing", Content: "Цены", Order: 2},
			},
			CreatedAt: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		SchemaName: "Стандартная схема",
	}

	content, err := BuildDocx(details)
	assert.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	assert.NoError(t, err)

	names := make(map[string]bool)
	var document string
	for _, f := range reader.File {
		names[f.Name] = true
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			assert.NoError(t, err)
			data, err := io.ReadAll(rc)
			assert.NoError(t, err)
			rc.Close()
			document = string(data)
		}
	}

	assert.True(t, names["[Content_Types].xml"])
	assert.True(t, names["_rels/.rels"])
	assert.True(t, names["word/document.xml"])

	assert.Contains(t, document, "Proposal &amp; Co")
	assert.Contains(t, document, "Status: approved")
	assert.Contains(t, document, "Schema: Стандартная схема")
	assert.Contains(t, document, "Created: 2025-03-14")
	// Спецсимволы контента экранируются.
	assert.Contains(t, document, "Вступление &lt;текст&gt;")
	assert.Contains(t, document, "pricing")
}
