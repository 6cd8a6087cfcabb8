package snippets

import "time"

type Snippet struct {
	ID          string   `json:"id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Language    Language `json:"language"`
	Tags        []string `json:"tags"`
	Favorite    bool     `json:"is_favorite"`
	Public      bool     `json:"is_public"`

	OwnerID string `json:"user_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an unsaved snippet with the editor defaults.
func New() *Snippet {
	return &Snippet{
		Language: LanguageJavaScript,
		Tags:     []string{},
		Public:   true,
	}
}

// Saved reports whether the snippet has been accepted by the store.
func (s *Snippet) Saved() bool {
	return s != nil && s.ID != ""
}

func (s *Snippet) clone() *Snippet {
	if s == nil {
		return nil
	}
	c := *s
	if s.Tags != nil {
		c.Tags = append([]string(nil), s.Tags...)
	}
	return &c
}

type CreateSnippetRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Code        string   `json:"code"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
	Favorite    bool     `json:"is_favorite"`
	Public      *bool    `json:"is_public"`
}

// Patch carries the fields of an update; nil fields are left unchanged.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Code        *string   `json:"code,omitempty"`
	Language    *string   `json:"language,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Favorite    *bool     `json:"is_favorite,omitempty"`
	Public      *bool     `json:"is_public,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Code == nil && p.Language == nil &&
		p.Tags == nil && p.Favorite == nil && p.Public == nil
}

// Scope names one slice of the snippets table that can be listed and cached on its own.
type Scope int

const (
	ScopePublic Scope = iota
	ScopeOwner
	ScopeAll
)

// VisibleFilter selects one scope. OwnerID is only read for ScopeOwner.
type VisibleFilter struct {
	Scope   Scope
	OwnerID string
}
