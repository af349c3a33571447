package domain

import (
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const MaxMessageLen = 1000

var ErrMessageContentInvalid = errors.New("invalid message content")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// notblank: at least one non-whitespace rune.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), func(r rune) bool {
			return !unicode.IsSpace(r)
		}) >= 0
	})
	return v
}

type messageContent struct {
	Content string `validate:"notblank,max=1000"`
}

// ValidateMessageContent rejects blank (whitespace-only) content and
// content longer than MaxMessageLen.
func ValidateMessageContent(content string) error {
	if err := validate.Struct(messageContent{Content: content}); err != nil {
		return ErrMessageContentInvalid
	}
	return nil
}
