package model_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/secmon-lab/lexiconnect/pkg/domain/types"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, ok := model.ParseTimestamp(s)
	gt.Bool(t, ok).True()
	return ts
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "rfc3339 utc", input: "2024-01-01T10:00:00Z", want: "2024-01-01T10:00:00Z", ok: true},
		{name: "rfc3339 offset", input: "2024-01-01T12:00:00+02:00", want: "2024-01-01T10:00:00Z", ok: true},
		{name: "fractional seconds", input: "2024-01-01T10:00:00.123456Z", want: "2024-01-01T10:00:00.123456Z", ok: true},
		{name: "naive is utc", input: "2024-01-01T10:00:00", want: "2024-01-01T10:00:00Z", ok: true},
		{name: "space separated", input: "2024-01-01 10:00:00", want: "2024-01-01T10:00:00Z", ok: true},
		{name: "date only", input: "2024-01-01", want: "2024-01-01T00:00:00Z", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "garbage", input: "yesterday at noon", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := model.ParseTimestamp(tt.input)
			gt.Value(t, ok).Equal(tt.ok)
			if tt.ok {
				gt.Value(t, model.FormatTimestamp(got)).Equal(tt.want)
			} else {
				gt.Bool(t, got.IsZero()).True()
			}
		})
	}
}

func TestFormatTimestamp_Zero(t *testing.T) {
	gt.Value(t, model.FormatTimestamp(time.Time{})).Equal("")
}

func TestReviewLink_Summary(t *testing.T) {
	t.Run("with changes", func(t *testing.T) {
		r := model.ReviewLink{DocTitle: "Lease", Link: "https://docs.example.com/1", Changes: "fixed clause 3"}
		s := r.Summary()
		gt.String(t, s).Contains(`"Lease"`)
		gt.String(t, s).Contains("https://docs.example.com/1")
		gt.String(t, s).Contains("Changes: fixed clause 3")
	})

	t.Run("without title or changes", func(t *testing.T) {
		r := model.ReviewLink{DocumentID: 9, Link: "https://docs.example.com/9", Changes: "  "}
		s := r.Summary()
		gt.String(t, s).Contains("document #9")
		gt.Bool(t, strings.Contains(s, "Changes")).False()
	})
}

func TestConversation_Latest(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		conv := model.Conversation{CaseID: 1}
		_, ok := conv.Latest()
		gt.Bool(t, ok).False()
	})

	t.Run("only unparsable timestamps", func(t *testing.T) {
		conv := model.Conversation{CaseID: 1, Items: []model.ConversationItem{{Kind: types.ItemKindNote, ID: 1}}}
		_, ok := conv.Latest()
		gt.Bool(t, ok).False()
	})

	t.Run("max regardless of order", func(t *testing.T) {
		t2 := mustTime(t, "2024-01-01T11:00:00Z")
		conv := model.Conversation{CaseID: 1, Items: []model.ConversationItem{
			{Kind: types.ItemKindNote, ID: 1, CreatedAt: t2},
			{Kind: types.ItemKindNote, ID: 2, CreatedAt: mustTime(t, "2024-01-01T10:00:00Z")},
			{Kind: types.ItemKindNote, ID: 3},
		}}
		latest, ok := conv.Latest()
		gt.Bool(t, ok).True()
		gt.Bool(t, latest.Equal(t2)).True()
	})
}

func TestConversation_Signature(t *testing.T) {
	t1 := mustTime(t, "2024-01-01T10:00:00Z")
	a := model.Conversation{CaseID: 1, Items: []model.ConversationItem{{Kind: types.ItemKindNote, ID: 1, CreatedAt: t1}}}
	b := model.Conversation{CaseID: 1, Items: []model.ConversationItem{{Kind: types.ItemKindNote, ID: 1, CreatedAt: t1}}}
	gt.Value(t, a.Signature()).Equal(b.Signature())

	b.Items = append(b.Items, model.ConversationItem{Kind: types.ItemKindReview, ID: 1, CreatedAt: t1})
	gt.Value(t, a.Signature()).NotEqual(b.Signature())

	empty := model.Conversation{CaseID: 1}
	gt.Value(t, empty.Signature()).Equal("0")
}

func TestNewToast(t *testing.T) {
	t1 := mustTime(t, "2024-01-01T10:00:00Z")
	t2 := mustTime(t, "2024-01-01T11:00:00Z")
	conv := &model.Conversation{CaseID: 5, Items: []model.ConversationItem{
		{Kind: types.ItemKindNote, ID: 1, CreatedAt: t1, Text: "old"},
		{Kind: types.ItemKindNote, ID: 2, CreatedAt: t2, Text: strings.Repeat("x", 200)},
	}}

	toast := model.NewToast(nil, conv, t2, t2)
	gt.Value(t, toast.CaseID).Equal(int64(5))
	gt.Value(t, toast.CaseTitle).Equal("Case #5")
	gt.Value(t, len([]rune(toast.Preview))).Equal(140)
	gt.String(t, toast.ID).NotEqual("")

	titled := model.NewToast(&model.Case{ID: 5, Title: "Tenancy dispute"}, conv, t1, t2)
	gt.Value(t, titled.CaseTitle).Equal("Tenancy dispute")
	gt.Value(t, titled.Preview).Equal("old")
}
