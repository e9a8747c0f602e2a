package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/lexiconnect/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds CLI flags for mirroring toasts to a Slack channel
type Slack struct {
	botToken     string
	toastChannel string
	caseURL      string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token (for posting toasts)",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("LEXICONNECT_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-toast-channel",
			Usage:       "Slack channel ID toasts are mirrored to",
			Category:    "Slack",
			Destination: &x.toastChannel,
			Sources:     cli.EnvVars("LEXICONNECT_SLACK_TOAST_CHANNEL"),
		},
		&cli.StringFlag{
			Name:        "slack-case-url",
			Usage:       "Link format of a case in Slack messages, %d is replaced with the case ID",
			Category:    "Slack",
			Destination: &x.caseURL,
			Sources:     cli.EnvVars("LEXICONNECT_SLACK_CASE_URL"),
		},
	}
}

type slackLog struct {
	BotToken     string `masq:"secret"`
	ToastChannel string
}

func (x Slack) LogValue() slog.Value {
	return slog.AnyValue(slackLog{
		BotToken:     x.botToken,
		ToastChannel: x.toastChannel,
	})
}

// IsConfigured returns true when toasts should be mirrored to Slack
func (x *Slack) IsConfigured() bool {
	return x.botToken != ""
}

// Configure returns the Slack toaster, or nil when Slack is not configured
func (x *Slack) Configure() (*slack.Toaster, error) {
	if !x.IsConfigured() {
		return nil, nil
	}
	if x.toastChannel == "" {
		return nil, goerr.Wrap(ErrMissingOption, "slack-toast-channel is required with slack-bot-token",
			goerr.V(OptionKey, "slack-toast-channel"))
	}

	svc, err := slack.New(x.botToken)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize slack service")
	}

	var opts []slack.ToasterOption
	if x.caseURL != "" {
		opts = append(opts, slack.WithCaseURL(x.caseURL))
	}
	toaster, err := slack.NewToaster(svc, x.toastChannel, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack toaster")
	}
	return toaster, nil
}
