package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
	"github.com/secmon-lab/lexiconnect/pkg/service/lexiconnect"
	"github.com/secmon-lab/lexiconnect/pkg/usecase"
)

func TestConversationUseCase_Conversation(t *testing.T) {
	ctx := context.Background()
	t1 := ts(t, "2024-01-01T10:00:00Z")
	t2 := ts(t, "2024-01-01T11:00:00Z")
	t3 := ts(t, "2024-01-01T12:00:00Z")

	newAPI := func() *fakeAPI {
		api := newFakeAPI()
		api.setNotes(5,
			model.Note{ID: 1, Text: "please review", CreatedAt: t1},
			model.Note{ID: 2, Text: "looks good", CreatedAt: t3},
		)
		api.docs[5] = []model.Document{
			{ID: 10, CaseID: 5, Title: "Lease"},
			{ID: 11, CaseID: 5, Title: "NDA"},
		}
		api.reviews[10] = []model.ReviewLink{
			{ID: 100, DocumentID: 10, Link: "https://docs.example.com/lease", Changes: "clause 4", CreatedAt: t2},
		}
		api.reviews[11] = []model.ReviewLink{
			{ID: 101, DocumentID: 11, Link: "https://docs.example.com/nda", CreatedAt: t3},
		}
		return api
	}

	t.Run("merges notes and review links", func(t *testing.T) {
		uc := usecase.NewConversationUseCase(newAPI(), 2)

		conv, err := uc.Conversation(ctx, 5)
		gt.NoError(t, err).Required()
		gt.Value(t, conv.CaseID).Equal(int64(5))
		gt.Array(t, conv.Items).Length(4).Required()

		gt.Value(t, conv.Items[0].Key()).Equal("note:1")
		gt.Value(t, conv.Items[1].Key()).Equal("review:100")
		gt.Value(t, conv.Items[1].DocTitle).Equal("Lease")
		gt.String(t, conv.Items[1].Text).Contains("clause 4")
		// equal timestamps: notes come before reviews
		gt.Value(t, conv.Items[2].Key()).Equal("note:2")
		gt.Value(t, conv.Items[3].Key()).Equal("review:101")
		gt.Value(t, conv.Items[3].Kind).Equal(types.ItemKindReview)
	})

	t.Run("failed review fetch drops only that document", func(t *testing.T) {
		api := newAPI()
		api.reviewErr[10] = errAPIDown
		uc := usecase.NewConversationUseCase(api, 0)

		conv, err := uc.Conversation(ctx, 5)
		gt.NoError(t, err).Required()
		gt.Array(t, conv.Items).Length(3).Required()
		for _, item := range conv.Items {
			gt.Value(t, item.Key()).NotEqual("review:100")
		}
	})

	t.Run("failed notes fetch fails the conversation", func(t *testing.T) {
		api := newAPI()
		api.setNotesErr(5, errAPIDown)
		uc := usecase.NewConversationUseCase(api, 0)

		_, err := uc.Conversation(ctx, 5)
		gt.Error(t, err).Is(errAPIDown)
	})

	t.Run("unknown case maps to ErrCaseNotFound", func(t *testing.T) {
		api := newAPI()
		api.setNotesErr(5, goerr.Wrap(lexiconnect.ErrNotFound, "resource not found"))
		uc := usecase.NewConversationUseCase(api, 0)

		_, err := uc.Conversation(ctx, 5)
		gt.Error(t, err).Is(usecase.ErrCaseNotFound)
	})

	t.Run("invalid case id", func(t *testing.T) {
		uc := usecase.NewConversationUseCase(newAPI(), 0)
		_, err := uc.Conversation(ctx, 0)
		gt.Error(t, err).Is(usecase.ErrInvalidCaseID)
	})
}
