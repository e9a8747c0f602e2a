package lexiconnect

import (
	"strings"

	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
)

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (d caseDTO) toModel() *model.Case {
	createdAt, _ := model.ParseTimestamp(d.CreatedAt)
	return &model.Case{
		ID:         int64(d.ID),
		Title:      d.Title,
		Status:     types.CaseStatus(d.Status).Normalize(),
		ClientName: firstNonEmpty(d.ClientName, string(d.Client)),
		LawyerName: firstNonEmpty(d.LawyerName, string(d.Lawyer)),
		CreatedAt:  createdAt,
	}
}

func (d noteDTO) toModel(caseID int64) model.Note {
	var text string
	switch {
	case d.Note != nil:
		text = *d.Note
	case d.Text != nil:
		text = *d.Text
	}

	createdAt, _ := model.ParseTimestamp(firstNonEmpty(d.CreatedAt, d.CreatedAtCamel))

	if d.Case != 0 {
		caseID = int64(d.Case)
	}

	return model.Note{
		ID:         int64(d.ID),
		CaseID:     caseID,
		Text:       text,
		AuthorName: firstNonEmpty(d.AuthorName, string(d.Author)),
		AuthorRole: types.Role(strings.ToLower(strings.TrimSpace(d.AuthorRole))),
		CreatedAt:  createdAt,
	}
}

func (d documentDTO) toModel(caseID int64) model.Document {
	if d.Case != 0 {
		caseID = int64(d.Case)
	}
	return model.Document{
		ID:     int64(d.ID),
		CaseID: caseID,
		Title:  firstNonEmpty(d.Title, d.Name, d.FileName),
	}
}

// toModel returns false for rows without a link; they are not conversation events
func (d reviewLinkDTO) toModel(documentID int64) (model.ReviewLink, bool) {
	if strings.TrimSpace(d.ReviewLink) == "" {
		return model.ReviewLink{}, false
	}
	if d.Document != 0 {
		documentID = int64(d.Document)
	}

	createdAt, _ := model.ParseTimestamp(firstNonEmpty(d.UpdatedAt, d.CreatedAt))
	return model.ReviewLink{
		ID:         int64(d.ID),
		DocumentID: documentID,
		Link:       strings.TrimSpace(d.ReviewLink),
		Changes:    d.Note,
		CreatedAt:  createdAt,
	}, true
}
