package lexiconnect

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
)

// Service is the subset of the LexiConnect REST API consumed by the unread tracker
type Service interface {
	// ListCases returns the cases visible to the authenticated viewer
	ListCases(ctx context.Context) ([]*model.Case, error)

	// FetchCaseNotes returns the notes of a case in API order
	FetchCaseNotes(ctx context.Context, caseID int64) ([]model.Note, error)

	// FetchCaseDocuments returns the documents attached to a case
	FetchCaseDocuments(ctx context.Context, caseID int64) ([]model.Document, error)

	// FetchDocumentReviewLinks returns the review links submitted for a document.
	// DocTitle is left empty; callers know the document.
	FetchDocumentReviewLinks(ctx context.Context, documentID int64) ([]model.ReviewLink, error)
}

// flexInt accepts both JSON numbers and numeric strings
type flexInt int64

func (x *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*x = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*x = 0
			return nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return goerr.Wrap(err, "invalid numeric id", goerr.V("value", s))
		}
		*x = flexInt(v)
		return nil
	}

	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*x = flexInt(v)
	return nil
}

// personField accepts either a plain name or an object carrying one
type personField string

func (p *personField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = personField(s)
		return nil
	}

	var obj struct {
		FullName string `json:"full_name"`
		Name     string `json:"name"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Unknown shapes degrade to an anonymous author
		*p = ""
		return nil
	}
	*p = personField(firstNonEmpty(obj.FullName, obj.Name, obj.Username, obj.Email))
	return nil
}

// caseDTO mirrors a case row of GET /api/cases/
type caseDTO struct {
	ID         flexInt     `json:"id"`
	Title      string      `json:"title"`
	Status     string      `json:"status"`
	Client     personField `json:"client"`
	ClientName string      `json:"client_name"`
	Lawyer     personField `json:"lawyer"`
	LawyerName string      `json:"lawyer_name"`
	CreatedAt  string      `json:"created_at"`
}

// noteDTO mirrors a note row. Older endpoints send text/createdAt/author.
type noteDTO struct {
	ID             flexInt     `json:"id"`
	Case           flexInt     `json:"case"`
	Note           *string     `json:"note"`
	Text           *string     `json:"text"`
	CreatedAt      string      `json:"created_at"`
	CreatedAtCamel string      `json:"createdAt"`
	AuthorName     string      `json:"author_name"`
	Author         personField `json:"author"`
	AuthorRole     string      `json:"author_role"`
}

// documentDTO mirrors a case document row
type documentDTO struct {
	ID       flexInt `json:"id"`
	Case     flexInt `json:"case"`
	Title    string  `json:"title"`
	Name     string  `json:"name"`
	FileName string  `json:"file_name"`
}

// reviewLinkDTO mirrors a review link row
type reviewLinkDTO struct {
	ID         flexInt `json:"id"`
	Document   flexInt `json:"document"`
	ReviewLink string  `json:"review_link"`
	Note       string  `json:"note"`
	UpdatedAt  string  `json:"updated_at"`
	CreatedAt  string  `json:"created_at"`
}

// listEnvelope is a paginated list response
type listEnvelope struct {
	Results json.RawMessage `json:"results"`
	Next    *string         `json:"next"`
}
