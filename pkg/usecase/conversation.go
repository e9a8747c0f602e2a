package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/service/lexiconnect"
	"github.com/secmon-lab/lexiconnect/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultFetchConcurrency bounds parallel API requests per conversation
const DefaultFetchConcurrency = 4

type ConversationUseCase struct {
	api         lexiconnect.Service
	concurrency int
}

func NewConversationUseCase(api lexiconnect.Service, concurrency int) *ConversationUseCase {
	if concurrency <= 0 {
		concurrency = DefaultFetchConcurrency
	}
	return &ConversationUseCase{
		api:         api,
		concurrency: concurrency,
	}
}

// Conversation fetches the notes and review links of a case and merges them.
// A failed review link fetch for one document drops that document's links;
// failures to fetch notes or the document list fail the whole conversation,
// with ErrCaseNotFound when the API does not know the case.
func (uc *ConversationUseCase) Conversation(ctx context.Context, caseID int64) (*model.Conversation, error) {
	if caseID <= 0 {
		return nil, goerr.Wrap(ErrInvalidCaseID, "case id must be positive", goerr.V(CaseIDKey, caseID))
	}

	var (
		notes []model.Note
		docs  []model.Document
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		notes, err = uc.api.FetchCaseNotes(egCtx, caseID)
		return err
	})
	eg.Go(func() error {
		var err error
		docs, err = uc.api.FetchCaseDocuments(egCtx, caseID)
		return err
	})
	if err := eg.Wait(); err != nil {
		if errors.Is(err, lexiconnect.ErrNotFound) {
			return nil, goerr.Wrap(ErrCaseNotFound, err.Error(), goerr.V(CaseIDKey, caseID))
		}
		return nil, goerr.Wrap(err, "failed to fetch conversation", goerr.V(CaseIDKey, caseID))
	}

	reviews := uc.fetchReviews(ctx, caseID, docs)

	return &model.Conversation{
		CaseID: caseID,
		Items:  Merge(notes, reviews),
	}, nil
}

// fetchReviews collects review links of every document in document order
func (uc *ConversationUseCase) fetchReviews(ctx context.Context, caseID int64, docs []model.Document) []model.ReviewLink {
	perDoc := make([][]model.ReviewLink, len(docs))

	var eg errgroup.Group
	eg.SetLimit(uc.concurrency)
	for i, doc := range docs {
		eg.Go(func() error {
			links, err := uc.api.FetchDocumentReviewLinks(ctx, doc.ID)
			if err != nil {
				logging.From(ctx).Warn("skipping review links of document",
					CaseIDKey, caseID,
					DocumentIDKey, doc.ID,
					"error", err.Error(),
				)
				return nil
			}
			for j := range links {
				links[j].DocTitle = doc.Title
			}
			perDoc[i] = links
			return nil
		})
	}
	_ = eg.Wait()

	var reviews []model.ReviewLink
	for _, links := range perDoc {
		reviews = append(reviews, links...)
	}
	return reviews
}
