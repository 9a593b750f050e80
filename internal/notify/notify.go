package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wneessen/go-mail"

	"github.com/argyx/officetrack/internal/extract"
	"github.com/argyx/officetrack/internal/report"
	"github.com/argyx/officetrack/internal/search"
)

// Config controls digest composition and delivery.
type Config struct {
	From     string
	To       string
	Language search.Language // digest wording, "en" or "el"

	// RetryInterval is the initial backoff between delivery attempts.
	RetryInterval time.Duration

	Logger *slog.Logger
}

// Notifier composes and sends the finding digest and the weekly analytics
// report.
type Notifier struct {
	sender Sender
	cfg    Config
	log    *slog.Logger
}

// New creates a Notifier delivering through sender.
func New(sender Sender, cfg Config) *Notifier {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 2 * time.Second
	}
	return &Notifier{sender: sender, cfg: cfg, log: log}
}

// digestLabels carries the language-dependent wording of the digest mail.
type digestLabels struct {
	Subject  string
	Intro    string
	Location string
	Source   string
	ReadMore string
}

func (n *Notifier) labels(now time.Time) digestLabels {
	date := now.Format("2006-01-02")
	if n.cfg.Language == search.Greek {
		return digestLabels{
			Subject:  "Ενημέρωση Έργων Γραφείων - " + date,
			Intro:    "Παρακάτω θα βρείτε τα τελευταία έργα γραφείων που εντοπίστηκαν:",
			Location: "Τοποθεσία:",
			Source:   "Πηγή:",
			ReadMore: "Διαβάστε Περισσότερα",
		}
	}
	return digestLabels{
		Subject:  "Office Project Updates - " + date,
		Intro:    "Here are the latest office projects found:",
		Location: "Location:",
		Source:   "Source:",
		ReadMore: "Read More",
	}
}

const digestTextTmpl = `{{.Labels.Intro}}

{{range .Findings -}}
- {{.Company}} in {{.Location}}
  {{.Title}}
  {{.Description}}
  {{$.Labels.Source}} {{.URL}}

{{end}}`

const digestHTMLTmpl = `<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; }
  .project { margin-bottom: 20px; padding: 15px; border: 1px solid #ddd; border-radius: 5px; }
  .company { font-weight: bold; color: #2c3e50; }
  .location { color: #7f8c8d; }
  .title { font-size: 18px; color: #16a085; margin: 5px 0; }
  .description { margin: 10px 0; }
  .link { color: #3498db; }
</style>
<meta charset="UTF-8">
</head>
<body>
  <h2>{{.Labels.Subject}}</h2>
  <p>{{.Labels.Intro}}</p>
{{- range .Findings}}
  <div class="project">
    <div class="company">{{.Company}}</div>
    <div class="location">{{$.Labels.Location}} {{.Location}}</div>
    <div class="title">{{.Title}}</div>
    <div class="description">{{.Description}}</div>
    <div><a href="{{.URL}}" class="link">{{$.Labels.ReadMore}}</a></div>
  </div>
{{- end}}
</body>
</html>
`

var (
	digestText = texttemplate.Must(texttemplate.New("digestText").Parse(digestTextTmpl))
	digestHTML = template.Must(template.New("digestHTML").Parse(digestHTMLTmpl))
)

// SendDigest mails the new findings as a multipart text+HTML digest. An
// empty findings slice is a no-op, not an error.
func (n *Notifier) SendDigest(ctx context.Context, findings []*extract.Finding, now time.Time) error {
	if len(findings) == 0 {
		n.log.Info("no new findings, skipping digest")
		return nil
	}

	data := struct {
		Labels   digestLabels
		Findings []*extract.Finding
	}{Labels: n.labels(now), Findings: findings}

	var textBody, htmlBody bytes.Buffer
	if err := digestText.Execute(&textBody, data); err != nil {
		return fmt.Errorf("render digest text: %w", err)
	}
	if err := digestHTML.Execute(&htmlBody, data); err != nil {
		return fmt.Errorf("render digest html: %w", err)
	}

	msg, err := n.newMsg(data.Labels.Subject)
	if err != nil {
		return err
	}
	msg.SetBodyString(mail.TypeTextPlain, textBody.String())
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody.String())

	if err := n.deliver(ctx, msg); err != nil {
		return err
	}
	n.log.Info("digest sent", "findings", len(findings), "to", n.cfg.To)
	return nil
}

const analyticsHTMLTmpl = `<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; }
  .container { max-width: 800px; margin: 0 auto; padding: 20px; }
  .header { background-color: #2c3e50; color: white; padding: 15px; text-align: center; }
  .card { background-color: #f9f9f9; border-radius: 5px; padding: 15px; margin-bottom: 20px; }
  h2 { color: #2c3e50; border-bottom: 1px solid #eee; padding-bottom: 5px; }
</style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>Office Project Tracker - Weekly Analytics</h1>
      <p>{{.From.Format "2006-01-02"}} to {{.To.Format "2006-01-02"}}</p>
    </div>
    <h2>Summary</h2>
    <div class="card">
      <p><strong>Runs:</strong> {{.Runs}} ({{.OKRuns}} ok, {{.PartialRuns}} partial, {{.FatalRuns}} fatal)</p>
      <p><strong>Queries Issued:</strong> {{.QueriesIssued}}</p>
      <p><strong>Results Fetched:</strong> {{.ResultsFetched}}</p>
      <p><strong>Findings Extracted:</strong> {{.FindingsExtracted}}</p>
      <p><strong>New Findings:</strong> {{.NewFindings}}</p>
      <p><strong>Digests Sent:</strong> {{.NotificationsSent}}</p>
      <p><strong>Errors:</strong> {{.Errors}}</p>
    </div>
  </div>
</body>
</html>
`

var analyticsHTML = template.Must(template.New("analyticsHTML").Parse(analyticsHTMLTmpl))

// SendAnalytics mails the weekly activity aggregate. A window with no runs
// is a no-op.
func (n *Notifier) SendAnalytics(ctx context.Context, a report.Analytics) error {
	if a.Runs == 0 {
		n.log.Info("no runs in window, skipping analytics mail")
		return nil
	}

	var htmlBody bytes.Buffer
	if err := analyticsHTML.Execute(&htmlBody, a); err != nil {
		return fmt.Errorf("render analytics html: %w", err)
	}

	msg, err := n.newMsg("Office Project Tracker - Weekly Analytics Report")
	if err != nil {
		return err
	}
	msg.SetBodyString(mail.TypeTextHTML, htmlBody.String())

	if err := n.deliver(ctx, msg); err != nil {
		return err
	}
	n.log.Info("analytics report sent", "runs", a.Runs, "to", n.cfg.To)
	return nil
}

func (n *Notifier) newMsg(subject string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(n.cfg.To); err != nil {
		return nil, fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(subject)
	return msg, nil
}

// deliver retries transient SMTP failures. Authentication rejections are not
// retried, retrying the same bad credentials only burns attempts.
func (n *Notifier) deliver(ctx context.Context, msg *mail.Msg) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = n.cfg.RetryInterval

	op := func() error {
		err := n.sender.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if isAuthError(err) {
			return backoff.Permanent(err)
		}
		n.log.Warn("mail delivery failed, retrying", "error", err)
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 2), ctx)); err != nil {
		return fmt.Errorf("deliver mail: %w", err)
	}
	return nil
}

func isAuthError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "535") ||
		strings.Contains(s, "authentication") ||
		strings.Contains(s, "username and password not accepted")
}
