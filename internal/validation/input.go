package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUserNameLength      = 2
	MaxUserNameLength      = 100
	MinProposalTitleLength = 3
	MaxProposalTitleLength = 255
	MinSurveyNotesLength   = 10
	MaxSurveyNotesLength   = 50000
	MaxAttachmentsCount    = 20
	MaxAttachmentLength    = 500
	MinSchemaNameLength    = 3
	MaxSchemaNameLength    = 255
	MaxSectionsCount       = 50
	MaxCommentsLength      = 5000
)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUserName проверяет имя пользователя при регистрации.
func ValidateUserName(name string) error {
	if name == "" {
		return fmt.Errorf("имя обязательно")
	}

	name = strings.TrimSpace(name)

	if err := ValidateLength("имя", name, MinUserNameLength, MaxUserNameLength); err != nil {
		return err
	}

	nameRegex := regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s\-_.]+$`)
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("имя содержит недопустимые символы")
	}

	return nil
}

// ValidateProposalTitle проверяет заголовок предложения.
func ValidateProposalTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("заголовок предложения обязателен")
	}

	return ValidateLength("заголовок предложения", strings.TrimSpace(title), MinProposalTitleLength, MaxProposalTitleLength)
}

// ValidateSurveyNotes проверяет заметки опроса — исходный материал генерации.
func ValidateSurveyNotes(notes string) error {
	if strings.TrimSpace(notes) == "" {
		return fmt.Errorf("заметки опроса обязательны")
	}

	return ValidateLength("заметки опроса", strings.TrimSpace(notes), MinSurveyNotesLength, MaxSurveyNotesLength)
}

// ValidateAttachments проверяет список ссылок на вложения.
func ValidateAttachments(attachments []string) error {
	if len(attachments) > MaxAttachmentsCount {
		return fmt.Errorf("количество вложений не может превышать %d", MaxAttachmentsCount)
	}

	for _, a := range attachments {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("вложение не может быть пустым")
		}
		if utf8.RuneCountInString(a) > MaxAttachmentLength {
			return fmt.Errorf("ссылка на вложение не может быть длиннее %d символов", MaxAttachmentLength)
		}
	}

	return nil
}

// ValidateSchemaName проверяет название схемы.
func ValidateSchemaName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("название схемы обязательно")
	}

	return ValidateLength("название схемы", strings.TrimSpace(name), MinSchemaNameLength, MaxSchemaNameLength)
}

// ValidateAdminComments проверяет комментарий администратора при отклонении.
func ValidateAdminComments(comments string) error {
	if strings.TrimSpace(comments) == "" {
		return fmt.Errorf("комментарий администратора обязателен при отклонении")
	}

	return ValidateLength("комментарий администратора", strings.TrimSpace(comments), 0, MaxCommentsLength)
}
