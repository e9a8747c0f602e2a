package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Toaster mirrors toasts into a Slack channel
type Toaster struct {
	svc       Service
	channelID string
	caseURL   string
}

// ToasterOption is a functional option for Toaster
type ToasterOption func(*Toaster)

// WithCaseURL sets a link format for the case, e.g.
// "https://app.example.com/cases/%d". The case ID is the only argument.
func WithCaseURL(format string) ToasterOption {
	return func(t *Toaster) {
		t.caseURL = format
	}
}

func NewToaster(svc Service, channelID string, opts ...ToasterOption) (*Toaster, error) {
	if svc == nil {
		return nil, goerr.New("Slack service is required")
	}
	if channelID == "" {
		return nil, goerr.New("Slack toast channel is required")
	}

	t := &Toaster{
		svc:       svc,
		channelID: channelID,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ChannelName resolves the name of the toast channel
func (t *Toaster) ChannelName(ctx context.Context) (string, error) {
	name, err := t.svc.GetChannelName(ctx, t.channelID)
	if err != nil {
		return "", goerr.Wrap(err, "failed to resolve toast channel", goerr.V("channel_id", t.channelID))
	}
	return name, nil
}

// Deliver posts the toast. Slack never holds toasts back, so a toast is
// always delivered unless posting fails.
func (t *Toaster) Deliver(ctx context.Context, toast *model.Toast) (bool, error) {
	blocks, text := t.buildMessage(toast)
	if _, err := t.svc.PostMessage(ctx, t.channelID, blocks, text); err != nil {
		return false, goerr.Wrap(err, "failed to mirror toast to Slack",
			goerr.V("case_id", toast.CaseID),
			goerr.V("toast_id", toast.ID))
	}
	return true, nil
}

func (t *Toaster) buildMessage(toast *model.Toast) ([]slack.Block, string) {
	title := escapeMrkdwn(toast.CaseTitle)
	if t.caseURL != "" {
		title = fmt.Sprintf("<%s|%s>", fmt.Sprintf(t.caseURL, toast.CaseID), title)
	}

	text := fmt.Sprintf("New activity on %s", toast.CaseTitle)

	blocks := []slack.Block{
		slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf(":speech_balloon: *New activity on %s*", title), false, false),
			nil, nil,
		),
	}
	if preview := strings.TrimSpace(toast.Preview); preview != "" {
		blocks = append(blocks, slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, quote(escapeMrkdwn(preview)), false, false),
			nil, nil,
		))
	}
	if !toast.Latest.IsZero() {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject(slack.MarkdownType,
				fmt.Sprintf("<!date^%d^{date_short_pretty} {time}|%s>", toast.Latest.Unix(), model.FormatTimestamp(toast.Latest)),
				false, false),
		))
	}

	return blocks, text
}

var mrkdwnEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeMrkdwn(s string) string {
	return mrkdwnEscaper.Replace(s)
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "> " + line
	}
	return strings.Join(lines, "\n")
}
