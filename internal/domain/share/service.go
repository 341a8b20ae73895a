package share

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"strings"

	apperrors "github.com/yanqian/meeting-summarizer/pkg/errors"
	"github.com/yanqian/meeting-summarizer/pkg/validation"
)

//go:embed templates/summary.html
var templateFS embed.FS

var mailTemplate = template.Must(template.ParseFS(templateFS, "templates/summary.html"))

var requestMessages = validation.Messages{
	"recipientEmail.required": "Must be a valid email address.",
	"recipientEmail.email":    "Must be a valid email address.",
	"summary.required":        "Summary cannot be empty.",
}

// Renderer converts Markdown into an HTML fragment. Raw HTML in the input
// must not be passed through.
type Renderer interface {
	Render(markdown string) (string, error)
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Service shares summaries by email.
type Service interface {
	Share(ctx context.Context, req Request) (Response, error)
}

type service struct {
	renderer  Renderer
	mailer    Mailer
	validator *validation.Validator
	logger    *slog.Logger
}

// NewService is a wire provider for the share domain.
func NewService(renderer Renderer, mailer Mailer, logger *slog.Logger) Service {
	return &service{
		renderer:  renderer,
		mailer:    mailer,
		validator: validation.New(),
		logger:    logger.With("component", "share.service"),
	}
}

func (s *service) Share(ctx context.Context, req Request) (Response, error) {
	req.RecipientEmail = strings.ToLower(strings.TrimSpace(req.RecipientEmail))
	req.Summary = strings.TrimSpace(req.Summary)
	if err := s.validator.Struct(req, requestMessages); err != nil {
		return Response{}, apperrors.Wrap("invalid_input", "invalid share request", err)
	}

	body, err := s.render(req.Summary)
	if err != nil {
		return Response{}, apperrors.Wrap("render_error", "failed to render summary", err)
	}

	msg := Message{To: req.RecipientEmail, Subject: Subject, HTML: body}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("summary mail failed", "error", err)
		return Response{}, apperrors.Wrap("mail_error", "failed to send summary email", err)
	}
	s.logger.Info("summary shared", "recipient_domain", domainOf(req.RecipientEmail))
	return Response{Message: SuccessMessage}, nil
}

func (s *service) render(markdown string) (string, error) {
	fragment, err := s.renderer.Render(markdown)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	// The renderer escapes raw HTML, so its output is trusted here.
	if err := mailTemplate.Execute(&buf, struct{ Body template.HTML }{Body: template.HTML(fragment)}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func domainOf(addr string) string {
	if at := strings.LastIndexByte(addr, '@'); at >= 0 {
		return addr[at+1:]
	}
	return ""
}
