package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.NoError(t, ValidateEmail("User.Name+tag@sub.example.ru"))

	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("no-at-sign"))
	assert.Error(t, ValidateEmail("two@@example.com"))
	assert.Error(t, ValidateEmail("user@localhost"))
	assert.Error(t, ValidateEmail("пользователь@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Password1"))

	assert.Error(t, ValidatePassword("short1A"))
	assert.Error(t, ValidatePassword("nouppercase1"))
	assert.Error(t, ValidatePassword("NOLOWERCASE1"))
	assert.Error(t, ValidatePassword("NoDigitsHere"))
}

func TestValidateProposalTitle(t *testing.T) {
	assert.NoError(t, ValidateProposalTitle("Коммерческое предложение"))

	assert.Error(t, ValidateProposalTitle(""))
	assert.Error(t, ValidateProposalTitle("  "))
	assert.Error(t, ValidateProposalTitle("ab"))
	assert.Error(t, ValidateProposalTitle(strings.Repeat("x", 256)))
}

func TestValidateSurveyNotes(t *testing.T) {
	assert.NoError(t, ValidateSurveyNotes("Заказчику нужен сайт с каталогом."))

	assert.Error(t, ValidateSurveyNotes(""))
	assert.Error(t, ValidateSurveyNotes("коротко"))
}

func TestValidateAttachments(t *testing.T) {
	assert.NoError(t, ValidateAttachments(nil))
	assert.NoError(t, ValidateAttachments([]string{"https://example.com/brief.pdf"}))

	assert.Error(t, ValidateAttachments([]string{"  "}))

	many := make([]string, MaxAttachmentsCount+1)
	for i := range many {
		many[i] = "file"
	}
	assert.Error(t, ValidateAttachments(many))
}

func TestValidateAdminComments(t *testing.T) {
	assert.NoError(t, ValidateAdminComments("Не хватает раздела с ценами"))

	assert.Error(t, ValidateAdminComments(""))
	assert.Error(t, ValidateAdminComments("   "))
}
