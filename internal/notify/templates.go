package notify

import (
	"fmt"
	"strings"

	"github.com/matcornic/hermes/v2"

	"github.com/ayush/social-media-api/internal/models"
)

// Message is a rendered email ready for a Sender.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Renderer turns notifications into branded emails.
type Renderer struct {
	h           hermes.Hermes
	confirmLink string
}

func NewRenderer(productName, productLink string) *Renderer {
	return &Renderer{
		h: hermes.Hermes{
			Theme: new(hermes.Default),
			Product: hermes.Product{
				Name: productName,
				Link: productLink,
			},
		},
		confirmLink: strings.TrimRight(productLink, "/") + "/confirm",
	}
}

// Render builds the email for n addressed to u.
func (r *Renderer) Render(n models.Notification, u *models.User) (Message, error) {
	subject, body, err := r.content(n, u)
	if err != nil {
		return Message{}, err
	}
	email := hermes.Email{Body: body}

	html, err := r.h.GenerateHTML(email)
	if err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", n.Kind, err)
	}
	text, err := r.h.GeneratePlainText(email)
	if err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", n.Kind, err)
	}
	return Message{To: u.Email, Subject: subject, HTML: html, Text: text}, nil
}

func (r *Renderer) content(n models.Notification, u *models.User) (string, hermes.Body, error) {
	body := hermes.Body{Name: u.Username}

	switch n.Kind {
	case models.NotifyRegistered:
		body.Intros = []string{fmt.Sprintf("Welcome to %s! We are excited to have you.", r.h.Product.Name)}
		body.Actions = []hermes.Action{{
			Instructions: "To get started with your account, please click here:",
			Button: hermes.Button{
				Color: "#22BC66",
				Text:  "Confirm your account",
				Link:  r.confirmLink,
			},
		}}
		body.Outros = []string{"If you did not register for this account, please disregard this email."}
		return "Registration Successful", body, nil

	case models.NotifyLoggedIn:
		body.Intros = []string{"You have successfully logged into your account."}
		body.Outros = []string{"If you did not log in, please contact our support team."}
		return "Login Notification", body, nil

	case models.NotifyPostCreated:
		body.Intros = []string{fmt.Sprintf("You have successfully created a new post titled %q.", n.PostTitle)}
		body.Outros = []string{"If you did not create this post, please contact our support team."}
		return "New Post Created", body, nil

	case models.NotifyPostUpdated:
		body.Intros = []string{fmt.Sprintf("Your post titled %q has been updated.", n.PostTitle)}
		body.Outros = []string{"If you did not update this post, please contact our support team."}
		return "Post Updated", body, nil

	case models.NotifyPostDeleted:
		body.Intros = []string{fmt.Sprintf("Your post titled %q has been deleted.", n.PostTitle)}
		body.Outros = []string{"If you did not delete this post, please contact our support team."}
		return "Post Deleted", body, nil
	}
	return "", body, fmt.Errorf("unknown notification kind %q", n.Kind)
}
