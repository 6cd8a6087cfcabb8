package httpapi

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/PabloPavan/swiftsnip/internal/snippets"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		return strings.TrimSpace(field.String()) != ""
	})
	validate.RegisterValidation("trimmedemail", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		email := strings.TrimSpace(field.String())
		if email == "" || len(email) > 254 {
			return false
		}
		return validate.Var(email, "email") == nil
	})
	validate.RegisterValidation("maxlines", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return strings.Count(field.String(), "\n")+1 <= limit
	})
	validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(field.String()) <= limit
	})
	validate.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		_, err := snippets.ParseLanguage(field.String())
		return err == nil
	})
}

type SignupDTO struct {
	Email    string `json:"email" validate:"required,notblank,trimmedemail"`
	Password string `json:"password" validate:"required,notblank,min=8,maxbytes=72"`
}

func (r *SignupDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Email": {
				"required":     "email and password are required",
				"notblank":     "email and password are required",
				"trimmedemail": "invalid email",
			},
			"Password": {
				"required": "email and password are required",
				"notblank": "email and password are required",
				"min":      "password is too short",
				"maxbytes": "password is too long",
			},
		}, "invalid request")
	}
	return nil
}

type LoginDTO struct {
	Email    string `json:"email" validate:"required,notblank,trimmedemail"`
	Password string `json:"password" validate:"required,notblank"`
}

func (r *LoginDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Email": {
				"trimmedemail": "invalid email",
				"*":            "email and password are required",
			},
			"Password": {
				"*": "email and password are required",
			},
		}, "invalid request")
	}
	return nil
}

type UserUpdateDTO struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,trimmedemail"`
	Password *string `json:"password,omitempty" validate:"omitempty,notblank,min=8,maxbytes=72"`
}

func (r *UserUpdateDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Email": {
				"trimmedemail": "invalid email",
			},
			"Password": {
				"min":      "password is too short",
				"maxbytes": "password is too long",
				"*":        "invalid password",
			},
		}, "invalid request")
	}
	return nil
}

type SnippetCreateDTO struct {
	Title       string   `json:"title" validate:"required,notblank,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Code        string   `json:"code" validate:"max=250000,maxlines=5000"`
	Language    string   `json:"language" validate:"omitempty,language"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=32"`
	Favorite    bool     `json:"is_favorite"`
	Public      *bool    `json:"is_public"`
}

func (r *SnippetCreateDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, snippetMessages, "invalid request")
	}
	return nil
}

func (r *SnippetCreateDTO) Request() snippets.CreateSnippetRequest {
	return snippets.CreateSnippetRequest{
		Title:       r.Title,
		Description: r.Description,
		Code:        r.Code,
		Language:    r.Language,
		Tags:        r.Tags,
		Favorite:    r.Favorite,
		Public:      r.Public,
	}
}

// SnippetPatchDTO carries a partial update; absent fields are left alone.
type SnippetPatchDTO struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2000"`
	Code        *string   `json:"code,omitempty" validate:"omitempty,max=250000,maxlines=5000"`
	Language    *string   `json:"language,omitempty" validate:"omitempty,language"`
	Tags        *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=32"`
	Favorite    *bool     `json:"is_favorite,omitempty"`
	Public      *bool     `json:"is_public,omitempty"`
}

func (r *SnippetPatchDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, snippetMessages, "invalid request")
	}
	return nil
}

func (r *SnippetPatchDTO) Patch() snippets.Patch {
	return snippets.Patch{
		Title:       r.Title,
		Description: r.Description,
		Code:        r.Code,
		Language:    r.Language,
		Tags:        r.Tags,
		Favorite:    r.Favorite,
		Public:      r.Public,
	}
}

var snippetMessages = map[string]map[string]string{
	"Title": {
		"required": "title is required",
		"notblank": "title is required",
		"max":      "title is too long",
	},
	"Description": {
		"max": "description is too long",
	},
	"Code": {
		"max":      "code is too long",
		"maxlines": "code has too many lines",
	},
	"Language": {
		"language": "unsupported language",
	},
	"Tags": {
		"max": "too many tags",
	},
}

type FavoriteDTO struct {
	Favorite *bool `json:"is_favorite" validate:"required"`
}

func (r *FavoriteDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.New("is_favorite is required")
	}
	return nil
}

type ThemeDTO struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

func (r *ThemeDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.New("theme must be light or dark")
	}
	return nil
}

type MarkdownDTO struct {
	Text string `json:"text" validate:"max=250000"`
}

func (r *MarkdownDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.New("text is too long")
	}
	return nil
}

type RunDTO struct {
	Code     string `json:"code" validate:"required,notblank"`
	Language string `json:"language" validate:"omitempty,language"`
}

func (r *RunDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Code":     {"*": "code is required"},
			"Language": {"language": "unsupported language"},
		}, "invalid request")
	}
	return nil
}

func validationMessage(err error, messages map[string]map[string]string, fallback string) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return errors.New(fallback)
	}
	for _, valErr := range valErrs {
		if fieldMessages, ok := messages[valErr.Field()]; ok {
			if msg, ok := fieldMessages[valErr.Tag()]; ok {
				return errors.New(msg)
			}
			if msg, ok := fieldMessages["*"]; ok {
				return errors.New(msg)
			}
		}
	}
	return errors.New(fallback)
}
